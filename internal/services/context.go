package services

import "context"

type contextKey string

const (
	scanIDKey    contextKey = "scan_id"
	systemKey    contextKey = "system"
	pathKey      contextKey = "path"
	operationKey contextKey = "operation"
)

// WithScanID annotates context with the scan run identifier.
func WithScanID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, scanIDKey, id)
}

// ScanIDFromContext extracts the scan run identifier if present.
func ScanIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(scanIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithSystem annotates context with the detected system key.
func WithSystem(ctx context.Context, system string) context.Context {
	if system == "" {
		return ctx
	}
	return context.WithValue(ctx, systemKey, system)
}

// SystemFromContext returns the system key if present.
func SystemFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(systemKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithPath annotates context with the file being processed.
func WithPath(ctx context.Context, path string) context.Context {
	if path == "" {
		return ctx
	}
	return context.WithValue(ctx, pathKey, path)
}

// PathFromContext returns the file path if present.
func PathFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(pathKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithOperation annotates context with the running operation (scan, convert, playlist).
func WithOperation(ctx context.Context, op string) context.Context {
	if op == "" {
		return ctx
	}
	return context.WithValue(ctx, operationKey, op)
}

// OperationFromContext returns the operation name if present.
func OperationFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(operationKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
