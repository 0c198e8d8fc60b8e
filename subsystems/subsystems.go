package subsystems

import "errors"

var (
	// ErrNilSubsystem is returned when a subsystem is nil
	ErrNilSubsystem = errors.New("subsystem is nil")
	// ErrSubSystemAlreadyStarted is returned when a subsystem is started twice
	ErrSubSystemAlreadyStarted = errors.New("subsystem already started")
	// ErrSubSystemNotStarted is returned when a subsystem is used before Start
	ErrSubSystemNotStarted = errors.New("subsystem not started")
)
