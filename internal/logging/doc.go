// Package logging configures slog handlers shared by the sceneflow CLI and
// provides attribute helpers plus the standardized field names used across
// pipeline stages.
package logging
