// Package session is the client-side session and authorization layer for
// multi-role applications: it derives, persists, and transitions the
// "who is signed in" state and gates access to protected views from it.
//
// Session state machine:
//   - Manager owns the in-memory Session and its transition graph
//     (Bootstrapping, Unauthenticated, Authenticating, Authenticated,
//     AuthError). Every session-affecting operation is a round trip to the
//     IdentityGateway; the last settled response wins, no ordering is
//     attempted. The credential store is kept in lockstep: token and
//     serialized user are written when a session becomes authenticated and
//     removed on logout or bootstrap rejection.
//
// Policy and gating:
//   - Evaluate is the single, pure implementation of access policy: a
//     three-valued decision (allow, deny, unknown) over the session and a
//     required role set. RouteGate turns decisions into router middleware
//     (loading placeholders, redirect-to-login with return-route capture,
//     access-denied handling) plus a public-only gate for login/register
//     style views.
//
// Activity sinks:
//   - ActivitySink is a light-weight audit emitter the Manager uses to
//     describe bootstrap, login, registration, logout, profile, and password
//     events. Sinks run best-effort (errors are logged) so you can forward
//     to a database or queue without blocking the session.
package session
