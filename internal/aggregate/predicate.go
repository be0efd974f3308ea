package aggregate

import (
	"strings"

	"github.com/haycash/docextract/internal/entity"
)

// Predicate decides whether a record belongs in the output at all. Filtering
// is orthogonal to completeness: an incomplete record can still pass.
type Predicate func(entity.Record) bool

// All keeps every record.
func All(entity.Record) bool { return true }

// ReceivedInvoices keeps CFDI records that represent invoices issued TO the
// target taxpayer by someone else: receiver matches the target RFC, issuer
// does not, and the voucher type is "I" (ingreso).
func ReceivedInvoices(targetRFC string) Predicate {
	target := strings.ToUpper(strings.TrimSpace(targetRFC))
	return func(r entity.Record) bool {
		receptor, ok := r.Field("rfc_receptor")
		if !ok || receptor.Text != target {
			return false
		}
		if emisor, ok := r.Field("rfc_emisor"); ok && emisor.Text == target {
			return false
		}
		if tipo, ok := r.Field("tipo_comprobante"); ok {
			return strings.EqualFold(strings.TrimSpace(tipo.Text), "I")
		}
		// Voucher type absent: keep the record, issuer/receiver already agree.
		return true
	}
}
