// Package types holds the entity capability contracts, search criteria
// filters, pagination arithmetic, and the value types shared by repositories.
package types
