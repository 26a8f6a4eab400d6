// Package participant models session membership, seating and presence.
//
// Participants tie users/roles/characters to a session and are the unit that
// enforces permissions for commands that mutate shared state. The package is
// responsible for:
//   - command validation for join/leave/profile updates and presence changes,
//   - seat accounting against the session capacity, including the wait list
//     and spectator fallback for full sessions,
//   - replaying participant events into the roster used for authorization.
package participant
