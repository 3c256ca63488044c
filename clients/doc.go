// Package clients is the client entity, its search criteria, and the
// repository bound to the clients table.
package clients
