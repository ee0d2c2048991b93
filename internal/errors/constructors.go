package errors

// Convenience constructors for the error categories used throughout the
// pipeline. They keep call sites terse and severity assignments uniform.

// DiscoveryError creates a fatal discovery error (bad project root).
func DiscoveryError(message string, cause error) *AutoDocError {
	return Wrap(cause, CategoryDiscovery, SeverityFatal, message)
}

// ParseError creates a file-scoped frontmatter parse error. Parse errors are
// collected during discovery and reported together; they never abort the run.
func ParseError(path string, cause error) *AutoDocError {
	return Wrap(cause, CategoryParse, SeverityWarning, "invalid frontmatter").
		WithContext("path", path)
}

// DependencyWarning creates a warning for a referenced asset that does not
// exist on disk yet.
func DependencyWarning(owner, asset string) *AutoDocError {
	return New(CategoryDependency, SeverityWarning, "referenced asset not found").
		WithContext("owner", owner).
		WithContext("asset", asset)
}

// RenderError creates a block-scoped diagram render error.
func RenderError(message string, cause error) *AutoDocError {
	return Wrap(cause, CategoryRender, SeverityWarning, message)
}

// ConverterError creates a format-scoped conversion error.
func ConverterError(format, message string, cause error) *AutoDocError {
	return Wrap(cause, CategoryConverter, SeverityError, message).
		WithContext("format", format)
}

// CacheError creates a cache error. Cache errors are recovered by resetting
// the persisted state to empty, so they carry warning severity.
func CacheError(message string, cause error) *AutoDocError {
	return Wrap(cause, CategoryCache, SeverityWarning, message)
}

// ConfigError creates a configuration error.
func ConfigError(message string, cause error) *AutoDocError {
	return Wrap(cause, CategoryConfig, SeverityFatal, message)
}
