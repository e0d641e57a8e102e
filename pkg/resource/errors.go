package resource

import gwerrors "github.com/stacklok/mcpgateway/pkg/errors"

func errInvalidResource(message string) error {
	return gwerrors.NewResourceInvalidError(message, nil)
}
