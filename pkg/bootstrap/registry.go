// Package bootstrap assembles the long-lived objects the gateway
// needs at startup and on every hot-reload: the loader set declared by
// configuration, the registry they populate, and the dispatcher bound
// to the executors and adapter built over that registry.
package bootstrap

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/stacklok/mcpgateway/pkg/adapter"
	"github.com/stacklok/mcpgateway/pkg/audit"
	"github.com/stacklok/mcpgateway/pkg/config"
	"github.com/stacklok/mcpgateway/pkg/httpexec"
	"github.com/stacklok/mcpgateway/pkg/loader"
	"github.com/stacklok/mcpgateway/pkg/logger"
	"github.com/stacklok/mcpgateway/pkg/mcp"
	"github.com/stacklok/mcpgateway/pkg/metrics"
	"github.com/stacklok/mcpgateway/pkg/registry"
	"github.com/stacklok/mcpgateway/pkg/resource"
	"github.com/stacklok/mcpgateway/pkg/secrets"
	"github.com/stacklok/mcpgateway/pkg/security"
	"github.com/stacklok/mcpgateway/pkg/sshexec"
)

// BuildLoaders turns every configured loader declaration into a
// concrete loader.Loader, resolving remote auth credentials eagerly
// since RemoteOptions wants the resolved secret value, not the
// reference.
func BuildLoaders(declarations []config.LoaderDeclaration, resolver *secrets.Resolver, cfg *config.Config) ([]loader.Loader, error) {
	loaders := make([]loader.Loader, 0, len(declarations))
	for _, decl := range declarations {
		switch decl.Type {
		case "local":
			loaders = append(loaders, loader.NewLocalFileLoader(decl.ID, decl.Files, decl.Dir, toLocalFilter(decl.Filter)))
		case "remote":
			opts, err := toRemoteOptions(decl, resolver, cfg)
			if err != nil {
				return nil, fmt.Errorf("loader %q: %w", decl.ID, err)
			}
			loaders = append(loaders, loader.NewRemoteResourceLoader(decl.ID, opts))
		default:
			return nil, fmt.Errorf("loader %q: unknown type %q", decl.ID, decl.Type)
		}
	}
	return loaders, nil
}

func toLocalFilter(f config.LoaderFilter) loader.LocalFilter {
	out := loader.LocalFilter{
		Groups:  f.Groups,
		Enabled: f.Enabled,
		Tags:    f.Tags,
	}
	for _, t := range f.Types {
		out.Types = append(out.Types, resource.Type(t))
	}
	if f.NameRegex != "" {
		if re, err := regexp.Compile(f.NameRegex); err == nil {
			out.NameRegex = re
		} else {
			logger.Warnf("bootstrap: loader filter nameRegex %q failed to compile: %v", f.NameRegex, err)
		}
	}
	return out
}

func toRemoteOptions(decl config.LoaderDeclaration, resolver *secrets.Resolver, cfg *config.Config) (loader.RemoteOptions, error) {
	var cred string
	if decl.AuthRef != "" {
		resolved, err := resolver.Resolve(decl.AuthRef)
		if err != nil {
			return loader.RemoteOptions{}, fmt.Errorf("resolving authRef: %w", err)
		}
		cred = resolved
	}
	override, strategy := buildSecurityOverride(cfg.Security)
	return loader.RemoteOptions{
		BaseURL:               decl.BaseURL,
		AuthType:              loader.RemoteAuthType(decl.AuthType),
		AuthCredential:        cred,
		APIKeyHeader:          decl.APIKeyHeader,
		Headers:               decl.Headers,
		CacheTTL:              time.Duration(decl.CacheTTLSecs) * time.Second,
		IsProduction:          cfg.IsProduction(),
		AllowLocalConnections: cfg.Security.AllowLocalConnections,
		MaxResponseBytes:      cfg.Security.MaxResponseBytes,
		RetryMax:              cfg.HTTP.RetryMax,
		RetryBaseMs:           cfg.HTTP.RetryBaseMs,
		RetryCapMs:            cfg.HTTP.RetryCapMs,
		URLOverride:           override,
		OverrideStrategy:      strategy,
	}, nil
}

// buildSecurityOverride compiles the operator's C11 extension-point
// patterns (security.validators / security.validatorsStrategy) into a
// Predicate composed onto the built-in URL/SSH-host/command checks. A
// disabled or empty configuration yields a nil predicate, leaving
// every built-in check unchanged.
func buildSecurityOverride(cfg config.SecurityConfig) (security.Predicate, security.Strategy) {
	if !cfg.ValidatorsEnabled || len(cfg.Validators) == 0 {
		return nil, ""
	}
	patterns := make([]*regexp.Regexp, 0, len(cfg.Validators))
	for _, p := range cfg.Validators {
		re, err := regexp.Compile(p)
		if err != nil {
			logger.Warnf("bootstrap: security validator pattern %q failed to compile: %v", p, err)
			continue
		}
		patterns = append(patterns, re)
	}
	predicate := func(subject any) bool {
		s, _ := subject.(string)
		for _, re := range patterns {
			if re.MatchString(s) {
				return false
			}
		}
		return true
	}
	return predicate, security.Strategy(cfg.ValidatorsStrategy)
}

// PopulateRegistry loads every loader's resources into a fresh
// Registry. A loader's individual source errors are logged and
// skipped; the returned registry contains everything that did load.
func PopulateRegistry(ctx context.Context, loaders []loader.Loader) *registry.Registry {
	reg := registry.New()
	for _, l := range loaders {
		result, err := l.Load(ctx)
		if err != nil {
			logger.Errorf("bootstrap: loader %q failed: %v", l.ID(), err)
			continue
		}
		for _, loadErr := range result.Errors {
			logger.Warnf("bootstrap: loader %q: %v", l.ID(), loadErr)
		}
		for _, res := range result.Resources {
			id := resource.IdentifierFor(res).Format()
			if err := reg.Register(id, res, registry.RegisterOptions{Overwrite: true}); err != nil {
				logger.Warnf("bootstrap: loader %q: registering %q: %v", l.ID(), id, err)
			}
		}
	}
	return reg
}

// Gateway bundles the objects cmd/gateway wires into a transport.
type Gateway struct {
	Registry   *registry.Handle
	Adapter    *adapter.Adapter
	HTTP       *httpexec.Executor
	SSH        *sshexec.Executor
	Dispatcher *mcp.Dispatcher
	Metrics    *metrics.Recorder
	Auditor    *audit.Auditor
}

// BuildGateway assembles every long-lived object from a resolved
// configuration tree. It is called once at startup and again, against
// a freshly populated registry, on every hot-reload.
func BuildGateway(ctx context.Context, cfg *config.Config, server mcp.ServerInfo) (*Gateway, error) {
	resolver := secrets.NewResolver()
	loaders, err := BuildLoaders(cfg.Resources.Loaders, resolver, cfg)
	if err != nil {
		return nil, err
	}
	reg := PopulateRegistry(ctx, loaders)
	handle := registry.NewHandle(reg)

	rateLimit := security.RateLimitOptions{
		Enabled:           cfg.Security.RateLimit.Enabled,
		RequestsPerSecond: cfg.Security.RateLimit.RequestsPerSecond,
		Burst:             cfg.Security.RateLimit.Burst,
	}
	override, overrideStrategy := buildSecurityOverride(cfg.Security)

	httpExec := httpexec.New(httpexec.Options{
		DefaultTimeout:        time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second,
		MaxRequestBytes:       cfg.Security.MaxRequestBytes,
		MaxResponseBytes:      cfg.Security.MaxResponseBytes,
		MaxRedirects:          cfg.HTTP.MaxRedirects,
		AllowLocalConnections: cfg.Security.AllowLocalConnections,
		SkipTLSVerification:   cfg.Security.SkipTLSVerification,
		IsProduction:          cfg.IsProduction(),
		AllowedContentTypes:   cfg.Security.AllowedContentTypes,
		RetryMax:              cfg.HTTP.RetryMax,
		RateLimit:             rateLimit,
		URLOverride:           override,
		OverrideStrategy:      overrideStrategy,
	})
	sshExec := sshexec.New(sshexec.Options{
		DefaultTimeout:        time.Duration(cfg.SSH.TimeoutSeconds) * time.Second,
		PoolSize:              cfg.SSH.PoolSize,
		IdleLinger:            time.Duration(cfg.SSH.IdleLingerSeconds) * time.Second,
		AllowLocalConnections: cfg.Security.AllowLocalConnections,
		RateLimit:             rateLimit,
		SSHHostOverride:       override,
		CommandOverride:       override,
		OverrideStrategy:      overrideStrategy,
		Algorithms: sshexec.Algorithms{
			Enabled:     cfg.SSH.Algorithms.Enabled,
			Fallback:    cfg.SSH.Algorithms.Fallback,
			KexList:     cfg.SSH.Algorithms.KexList,
			CipherList:  cfg.SSH.Algorithms.CipherList,
			HMACList:    cfg.SSH.Algorithms.HMACList,
			HostKeyList: cfg.SSH.Algorithms.HostKeyList,
		},
	})

	a := adapter.New(handle, resolver, httpExec, sshExec)
	d := mcp.New(handle, a, httpExec, sshExec, server)
	rec := metrics.NewRecorder()
	d.SetMetrics(rec)

	gw := &Gateway{Registry: handle, Adapter: a, HTTP: httpExec, SSH: sshExec, Dispatcher: d, Metrics: rec}

	if cfg.Audit.Enabled {
		auditor, err := audit.NewAuditor(toAuditConfig(cfg.Audit), string(cfg.Transport.Mode))
		if err != nil {
			return nil, fmt.Errorf("building auditor: %w", err)
		}
		d.SetAuditor(auditor)
		gw.Auditor = auditor
	}

	return gw, nil
}

func toAuditConfig(c config.AuditConfig) *audit.Config {
	return &audit.Config{
		Component:           c.Component,
		EventTypes:          c.EventTypes,
		ExcludeEventTypes:   c.ExcludeEventTypes,
		IncludeRequestData:  c.IncludeRequestData,
		IncludeResponseData: c.IncludeResponseData,
		MaxDataSize:         c.MaxDataSize,
		LogFile:             c.LogFile,
	}
}

// Reload re-runs every loader and swaps the result into gw's registry
// handle in place, so the dispatcher and adapter already bound to it
// see the new resource set on their next call.
func (gw *Gateway) Reload(ctx context.Context, cfg *config.Config) error {
	resolver := secrets.NewResolver()
	loaders, err := BuildLoaders(cfg.Resources.Loaders, resolver, cfg)
	if err != nil {
		return err
	}
	gw.Registry.Swap(PopulateRegistry(ctx, loaders))
	return nil
}
