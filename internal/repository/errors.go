// Package repository holds the SQL-backed stores.  The portal owns no
// clinic data; the only table it keeps is the session table used when
// SESSION_BACKEND=mysql.
package repository

import "errors"

// ErrCorrupt is returned when a stored row cannot be decoded.  The row is
// deleted and callers treat the session as absent.
var ErrCorrupt = errors.New("corrupt session row")
