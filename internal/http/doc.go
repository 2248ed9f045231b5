// Package http provides HTTP handlers and middleware for the club training
// API.
//
// The router exposes the following endpoints:
//   - GET /occurrences?from=YYYY-MM-DD&to=YYYY-MM-DD: merged calendar of
//     virtual and materialized sessions, one view per (rule, date) pair.
//   - POST /sessions: materializes a virtual occurrence. Body: {"ref","actor_id"}.
//   - GET /sessions/{id}: a single materialized session.
//   - PUT /sessions/{id}/note: replaces the session's free-text note.
//   - GET /sessions/{id}/attendance, POST /sessions/{id}/attendance:
//     attendance records exchanging the `attendanceDTO` payload defined in
//     session_handler.go.
//   - GET /sessions/{id}/cancellations: the session's cancellation history.
//   - POST /cancellations: cancels an occurrence by ref, materializing it
//     first when needed. Late cancellations are accepted and flagged.
//   - DELETE /cancellations/{id}: undoes an active cancellation.
//   - POST /cancellations/{id}/reactivate: restores an undone cancellation,
//     re-evaluating lateness.
//   - PUT /cancellations/{id}/reason: edits the reason of an active
//     cancellation before the deadline.
//   - GET /alerts: open absence alerts. POST /alerts/{id}/acknowledge marks
//     one handled.
//   - GET /members, POST /members: the club member directory.
//
// Request/response DTOs live alongside their respective handlers so tests and
// documentation share the same ground truth.
package http
