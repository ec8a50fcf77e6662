package install

import "errors"

var (
	// ErrCancelled is returned when the user or caller aborted the workflow.
	ErrCancelled = errors.New("the operation was cancelled")

	// ErrNoTeam is returned when the account has no team memberships.
	ErrNoTeam = errors.New("you are not a member of any developer teams")

	// ErrDeviceNotRegistered is returned when the device is unknown to the
	// team and automatic registration is disabled.
	ErrDeviceNotRegistered = errors.New("this device is not registered to your development team")

	// ErrMissingPrivateKey is returned when certificate creation carried no
	// key material.
	ErrMissingPrivateKey = errors.New("the developer certificate's private key could not be found")

	// ErrMissingCertificate is returned when the re-fetch after certificate
	// creation could not locate the new certificate.
	ErrMissingCertificate = errors.New("the developer certificate could not be found")
)
