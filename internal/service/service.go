// Package service defines the ServiceManager collaborator the control
// socket's service* commands delegate to, per spec §4.H. OS-service
// install/uninstall is an explicit Non-goal; StubManager reports "not
// supported" for every operation so the command surface stays complete.
package service

import "errors"

// Manager installs, starts, stops, and reports on the daemon as an OS
// background service (e.g. a launchd agent).
type Manager interface {
	Status() (string, error)
	Install() (string, error)
	Start() (string, error)
	Stop() (string, error)
	Restart() (string, error)
	Uninstall() (string, error)
}

// StubManager reports every operation as unsupported without touching the
// host OS.
type StubManager struct{}

// New returns the default StubManager.
func New() *StubManager {
	return &StubManager{}
}

const unsupportedMsg = "service management is not supported in this build"

var errUnsupported = errors.New(unsupportedMsg)

func (s *StubManager) Status() (string, error)    { return unsupportedMsg, nil }
func (s *StubManager) Install() (string, error)   { return "", errUnsupported }
func (s *StubManager) Start() (string, error)     { return "", errUnsupported }
func (s *StubManager) Stop() (string, error)      { return "", errUnsupported }
func (s *StubManager) Restart() (string, error)   { return "", errUnsupported }
func (s *StubManager) Uninstall() (string, error) { return "", errUnsupported }
