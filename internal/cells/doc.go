// Package cells stores one value of arbitrary type per slot key.
//
// Values are type-erased on write and checked on read. A read with the wrong
// type fails instead of converting. Clone reads by taking the value out and
// putting it straight back, so a caller never holds a reference into storage
// while other code runs against the same Storage.
package cells
