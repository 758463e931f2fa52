// Package cli implements portalctl, a command-line client for the campusdesk
// auth API.
//
// Commands:
//   - register: create an account (prompts for name, email, role, password)
//   - login: obtain a token and store it in the token file
//   - whoami: show the profile behind the stored token
//   - logout: forget the stored token
//
// Passwords are read from the terminal without echo and wiped after use.
package cli
