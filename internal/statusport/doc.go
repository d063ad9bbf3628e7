// Package statusport serves the server's status port.
//
// The protocol is line based. A client sends one request per line and gets
// exactly one reply line back:
//
//   - "STATUS", in any letter case, is answered with the JSON health report
//     of the attached provider.
//   - Any other line is echoed back as "You sent: <line>".
//
// Connections are served concurrently and stay open until the client closes
// them. Closing the listener stops accepting new connections without logging
// an error.
package statusport
