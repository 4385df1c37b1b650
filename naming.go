package prefetch

import (
	"strings"
	"unicode"

	"github.com/jinzhu/inflection"
)

// TableName derives the conventional table name for a model type name:
// snake case, pluralized. "OrderItem" becomes "order_items".
func TableName(model string) string {
	var b strings.Builder
	for i, r := range model {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}

	return inflection.Plural(b.String())
}
