// Package authcore implements the authentication and authorization core of a
// user/role/API-key system: signed session tokens (access + refresh pairs),
// magic-link one-time token flows, and scope-based access control.
//
// Token classes:
//   - Access, refresh, and magic-link tokens are signed with three
//     independent HMAC keys. TokenCodec encodes and decodes a class, so a
//     leaked refresh key can never mint access tokens and presenting a token
//     against the wrong class fails signature validation.
//
// Resolution and authorization:
//   - Resolver turns a LoginAttempt (password, client credential, bearer
//     token, or social assertion) into a ResolvedSession carrying the user
//     and, for API-key logins, the matched grant. Authorizer evaluates a
//     required scope against role-derived scopes or the grant's own scopes,
//     with an unconditional admin-role bypass.
//
// Sessions:
//   - SessionIssuer mints access/refresh pairs with identical claim bodies
//     and records a best-effort login event. Refresh exchanges preserve the
//     authority embedded in the presented refresh token unless re-derivation
//     is explicitly enabled.
//
// Stores are expressed as interfaces (UserStore, RoleStore, MagicLinkStore)
// with Bun-backed reference implementations; the email sink is a Mailer
// collaborator whose failures never fail the triggering workflow.
package authcore
