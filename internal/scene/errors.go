package scene

import "errors"

var (
	// ErrSceneNotFound is returned when a scene does not exist.
	ErrSceneNotFound = errors.New("scene: not found")

	// ErrInvalidScene is returned when a scene fails validation.
	ErrInvalidScene = errors.New("scene: invalid scene")

	// ErrInvalidName is returned when a scene name is empty or too long.
	ErrInvalidName = errors.New("scene: invalid name")
)
