// Package services defines the shared error taxonomy for Quill's external
// integrations.
//
// Failures from the completion service and from AnkiConnect are tagged with
// sentinel markers (transient, permanent, unreachable, not-ready) so that
// retry loops and reporting code can classify them with errors.Is instead of
// inspecting message text.
package services
