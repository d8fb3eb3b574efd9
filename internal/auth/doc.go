// Package auth handles agent accounts and API authentication.
//
// Agents log in with username and password (Argon2id hashed) and receive
// a short-lived HS256 JWT. The API middleware validates tokens by
// signature only, so request handling never hits the database.
package auth
