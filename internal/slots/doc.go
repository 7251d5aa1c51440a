// Package slots maps cell identifiers to stable internal keys.
//
// A Table pairs a name index with a generational Arena. Keys are cheap to
// copy and compare, and they stay valid for as long as the identifier is
// registered. After a Reset every previously issued key is rejected, even if
// its index is later handed out again.
package slots
