// Package biometric presents biometric challenges.
//
// Fprintd talks to the fprintd service on the system D-Bus: the device
// name and ListEnrolledFingers give availability and enrollment identity,
// VerifyStart and the VerifyStatus signal run the challenge.
// A verify-no-match result is OutcomeFailed and counts as a wrong factor;
// reader errors are OutcomeError; a cancelled context is OutcomeCanceled.
package biometric
