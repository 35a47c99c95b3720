package mtbuf

import (
	"fmt"
	"strings"
)

// String renders a one-line snapshot of the buffer, one cell per slot:
// " W " while a writer holds the slot, "kR " with k concurrent readers,
// " X " for a filled slot waiting to be consumed, " . " for an idle slot.
// Taken under the buffer lock so the snapshot is consistent with cursor
// advances and queue resets.
func (b *Buffer[T]) String() string {
	var sb strings.Builder
	sb.WriteString("[ ")

	b.global.lock()
	for _, d := range b.desc {
		switch n := d.nReading.Load(); {
		case d.writing.Load():
			sb.WriteString(" W ")
		case n > 0:
			sb.WriteString(fmt.Sprintf("%dR ", n))
		case d.dirty.Load():
			sb.WriteString(" X ")
		default:
			sb.WriteString(" . ")
		}
	}
	b.global.unlock()

	sb.WriteString(" ]")
	return sb.String()
}
