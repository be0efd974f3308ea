package patterns

import (
	"regexp"

	"github.com/haycash/docextract/internal/entity"
)

// Shared value regexes. The money pattern tolerates OCR artifacts: spaces
// after the symbol and spaces leaking into thousands separators.
const (
	exprRFC   = `[A-ZÑ&]{3,4}\d{6}[A-Z0-9]{2,3}`
	exprCURP  = `[A-Z]{4}\d{6}[HM][A-Z]{5}[A-Z0-9]{2}`
	exprMoney = `\$\s*\d{1,3}(?:[ ,]\d{3})*(?:\.\d{2})?`
	exprDate  = `\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|\d{4}-\d{2}-\d{2}|\d{1,2}\s+[Dd][Ee]\s+[A-Za-zÁÉÍÓÚáéíóú]+\s+[Dd][Ee]\s+\d{4}`
	exprUUID  = `[0-9A-Fa-f]{8}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{4}-[0-9A-Fa-f]{12}`
)

func builtinFamilies() []Family {
	return []Family{
		cfdiFamily(),
		csfFamily(),
		statementFamily(),
		contractFamily(),
		invoiceFamily(),
	}
}

// cfdiFamily covers SAT digital tax receipts (CFDI). The folio fiscal is the
// natural record identity, so it doubles as the dedupe field.
func cfdiFamily() Family {
	return Family{
		Name:        "cfdi",
		EntityField: "rfc_emisor",
		DateField:   "fecha",
		DedupeField: "uuid",
		Sniff:       regexp.MustCompile(`(?i)folio\s+fiscal|comprobante\s+fiscal\s+digital`),
		Patterns: []entity.FieldPattern{
			{
				Name: "uuid", Family: "cfdi", Kind: entity.KindIdentifier, Scheme: "uuid", Required: true,
				Pattern: regexp.MustCompile(exprUUID),
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)folio\s+fiscal`), Window: 160, Prefer: entity.PreferNearest},
			},
			{
				Name: "rfc_emisor", Family: "cfdi", Kind: entity.KindIdentifier, Scheme: "rfc", Required: true,
				Pattern: regexp.MustCompile(exprRFC),
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)emisor`), Window: 200, Prefer: entity.PreferNearest},
			},
			{
				Name: "rfc_receptor", Family: "cfdi", Kind: entity.KindIdentifier, Scheme: "rfc", Required: true,
				Pattern: regexp.MustCompile(exprRFC),
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)receptor`), Window: 200, Prefer: entity.PreferNearest},
			},
			{
				Name: "tipo_comprobante", Family: "cfdi", Kind: entity.KindFreeText,
				Pattern: regexp.MustCompile(`(?i)tipo\s+de\s+comprobante:?\s*([A-Z])\b`), Group: 1,
			},
			{
				Name: "fecha", Family: "cfdi", Kind: entity.KindDate, Required: true,
				Pattern: regexp.MustCompile(`(?i)fecha[^:\n]*:?\s*(` + exprDate + `)`), Group: 1,
			},
			{
				Name: "subtotal", Family: "cfdi", Kind: entity.KindCurrency,
				Pattern: regexp.MustCompile(`(?i)subtotal:?\s*(` + exprMoney + `)`), Group: 1,
			},
			{
				Name: "iva", Family: "cfdi", Kind: entity.KindCurrency,
				Pattern: regexp.MustCompile(`(?i)(?:iva|impuestos?\s+trasladados?):?\s*(` + exprMoney + `)`), Group: 1,
			},
			{
				Name: "total", Family: "cfdi", Kind: entity.KindCurrency, Required: true,
				Pattern: regexp.MustCompile(exprMoney),
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)\btotal\b`), Window: 80, Prefer: entity.PreferNearest},
			},
			{
				Name: "metodo_pago", Family: "cfdi", Kind: entity.KindFreeText,
				Pattern: regexp.MustCompile(`(?i)m[ée]todo\s+de\s+pago:?\s*(P[UP][EDG])\b`), Group: 1,
			},
		},
	}
}

// csfFamily covers the Constancia de Situación Fiscal issued by SAT.
func csfFamily() Family {
	return Family{
		Name:        "csf",
		EntityField: "rfc",
		DateField:   "fecha_emision",
		Sniff:       regexp.MustCompile(`(?i)constancia\s+de\s+situaci[óo]n\s+fiscal`),
		Patterns: []entity.FieldPattern{
			{
				Name: "rfc", Family: "csf", Kind: entity.KindIdentifier, Scheme: "rfc", Required: true,
				Pattern: regexp.MustCompile(exprRFC),
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)\bRFC\b`), Window: 120, Prefer: entity.PreferNearest},
			},
			{
				Name: "curp", Family: "csf", Kind: entity.KindIdentifier, Scheme: "curp",
				Pattern: regexp.MustCompile(exprCURP),
			},
			{
				Name: "nombre", Family: "csf", Kind: entity.KindFreeText,
				Pattern: regexp.MustCompile(`(?i)(?:nombre|denominaci[óo]n|raz[óo]n\s+social)[^:\n]*:?\s*([^\n]{3,120})`), Group: 1,
			},
			{
				Name: "regimen", Family: "csf", Kind: entity.KindFreeText,
				Pattern: regexp.MustCompile(`(?i)r[ée]gimen(?:es)?:?\s*([^\n]{3,120})`), Group: 1,
			},
			{
				Name: "codigo_postal", Family: "csf", Kind: entity.KindFreeText,
				Pattern: regexp.MustCompile(`(?i)c[óo]digo\s+postal:?\s*(\d{5})`), Group: 1,
			},
			{
				Name: "fecha_inicio_operaciones", Family: "csf", Kind: entity.KindDate,
				Pattern: regexp.MustCompile(`(?i)inicio\s+de\s+operaciones:?\s*(` + exprDate + `)`), Group: 1,
			},
			{
				Name: "correo", Family: "csf", Kind: entity.KindFreeText,
				Pattern: regexp.MustCompile(`(?i)correo\s+electr[óo]nico:?\s*([A-Z0-9._%+\-]+@[A-Z0-9.\-]+\.[A-Z]{2,})`), Group: 1,
			},
			{
				Name: "telefono", Family: "csf", Kind: entity.KindFreeText,
				Pattern: regexp.MustCompile(`(?i)tel[ée]fono:?\s*([\d\s\-()]{7,16})`), Group: 1,
			},
			{
				Name: "fecha_emision", Family: "csf", Kind: entity.KindDate,
				Pattern: regexp.MustCompile(`(?i)(?:lugar\s+y\s+fecha\s+de\s+emisi[óo]n|fecha\s+de\s+emisi[óo]n)[^,\n]*[,:\s]\s*[aA]?\s*(` + exprDate + `)`), Group: 1,
			},
		},
	}
}

// statementFamily covers bank account statements. CLABE identifies the
// account and the closing date of the period places the record in time.
func statementFamily() Family {
	return Family{
		Name:        "statement",
		EntityField: "clabe",
		DateField:   "periodo_fin",
		Sniff:       regexp.MustCompile(`(?i)estado\s+de\s+cuenta`),
		Patterns: []entity.FieldPattern{
			{
				Name: "clabe", Family: "statement", Kind: entity.KindIdentifier, Scheme: "clabe", Required: true,
				Pattern: regexp.MustCompile(`\b\d{18}\b`),
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)\bCLABE\b`), Window: 120, Prefer: entity.PreferNearest},
			},
			{
				Name: "rfc", Family: "statement", Kind: entity.KindIdentifier, Scheme: "rfc",
				Pattern: regexp.MustCompile(exprRFC),
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)\bRFC\b`), Window: 120, Prefer: entity.PreferNearest},
			},
			{
				Name: "periodo_fin", Family: "statement", Kind: entity.KindDate, Required: true,
				Pattern: regexp.MustCompile(`(?i)per[íi]odo[^\n]*?(?:al|a)\s*(` + exprDate + `)`), Group: 1,
			},
			{
				Name: "saldo_inicial", Family: "statement", Kind: entity.KindCurrency,
				Pattern: regexp.MustCompile(exprMoney),
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)saldo\s+(?:inicial|anterior)`), Window: 80, Prefer: entity.PreferNearest},
			},
			{
				Name: "saldo_final", Family: "statement", Kind: entity.KindCurrency,
				Pattern: regexp.MustCompile(exprMoney),
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)saldo\s+(?:final|actual|al\s+corte)`), Window: 80, Prefer: entity.PreferNearest},
			},
			{
				Name: "saldo_promedio", Family: "statement", Kind: entity.KindCurrency,
				Pattern: regexp.MustCompile(exprMoney),
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)saldo\s+promedio`), Window: 80, Prefer: entity.PreferNearest},
			},
			{
				Name: "depositos", Family: "statement", Kind: entity.KindCurrency,
				Pattern: regexp.MustCompile(exprMoney),
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)dep[óo]sitos|abonos`), Window: 80, Prefer: entity.PreferNearest},
			},
			{
				Name: "retiros", Family: "statement", Kind: entity.KindCurrency,
				Pattern: regexp.MustCompile(exprMoney),
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)retiros|cargos`), Window: 80, Prefer: entity.PreferNearest},
			},
			{
				Name: "interes_mensual", Family: "statement", Kind: entity.KindCurrency,
				Pattern: regexp.MustCompile(exprMoney),
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)inter[ée]s(?:es)?\s+(?:del\s+)?mes`), Window: 80, Prefer: entity.PreferNearest},
			},
			{
				Name: "isr_retenido", Family: "statement", Kind: entity.KindCurrency,
				Pattern: regexp.MustCompile(exprMoney),
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)isr\s+retenido|impuesto\s+retenido`), Window: 80, Prefer: entity.PreferNearest},
			},
		},
	}
}

// contractFamily covers lease and service contracts. The monthly amount is
// typically stated just before the clause naming it, hence PreferBefore.
func contractFamily() Family {
	return Family{
		Name:        "contract",
		EntityField: "rfc",
		DateField:   "fecha_firma",
		Sniff:       regexp.MustCompile(`(?i)\bcontrato\b`),
		Patterns: []entity.FieldPattern{
			{
				Name: "rfc", Family: "contract", Kind: entity.KindIdentifier, Scheme: "rfc",
				Pattern: regexp.MustCompile(exprRFC),
			},
			{
				Name: "capital", Family: "contract", Kind: entity.KindCurrency, Required: true,
				Pattern: regexp.MustCompile(exprMoney),
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)capital|monto\s+del\s+cr[ée]dito`), Window: 160, Prefer: entity.PreferNearest},
			},
			{
				Name: "valor_pagare", Family: "contract", Kind: entity.KindCurrency,
				Pattern: regexp.MustCompile(exprMoney),
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)pagar[ée]`), Window: 160, Prefer: entity.PreferNearest},
			},
			{
				Name: "cpa", Family: "contract", Kind: entity.KindPercent,
				Pattern: regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)\s*%`), Group: 1,
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)comisi[óo]n\s+por\s+apertura|\bCPA\b`), Window: 160, Prefer: entity.PreferNearest},
			},
			{
				Name: "pago_minimo_mensual", Family: "contract", Kind: entity.KindCurrency,
				Pattern: regexp.MustCompile(exprMoney),
				Anchor:  &entity.Anchor{Pattern: regexp.MustCompile(`(?i)(?:pago\s+)?m[íi]nimo\s+mensual|mensual(?:es|idad)?`), Window: 160, Prefer: entity.PreferBefore},
			},
			{
				Name: "fecha_firma", Family: "contract", Kind: entity.KindDate,
				Pattern: regexp.MustCompile(`(?i)(?:celebra[dn]o?\s+el|firmado\s+el|a\s+los?)\s*(` + exprDate + `)`), Group: 1,
			},
		},
	}
}

// invoiceFamily covers generic one-invoice-per-page batches, so each page
// becomes its own record.
func invoiceFamily() Family {
	return Family{
		Name:         "invoice",
		EntityField:  "rfc",
		DateField:    "fecha",
		SplitPerPage: true,
		Sniff:        regexp.MustCompile(`(?i)\bfactura\b|\binvoice\b`),
		Patterns: []entity.FieldPattern{
			{
				Name: "total", Family: "invoice", Kind: entity.KindCurrency, Required: true,
				Pattern: regexp.MustCompile(`(?i)total:?\s*(` + exprMoney + `)`), Group: 1,
			},
			{
				Name: "rfc", Family: "invoice", Kind: entity.KindIdentifier, Scheme: "rfc", Required: true,
				Pattern: regexp.MustCompile(`(?i)RFC:?\s*(` + exprRFC + `)`), Group: 1,
			},
			{
				Name: "folio", Family: "invoice", Kind: entity.KindFreeText,
				Pattern: regexp.MustCompile(`(?i)folio:?\s*([A-Z0-9-]{1,24})`), Group: 1,
			},
			{
				Name: "fecha", Family: "invoice", Kind: entity.KindDate,
				Pattern: regexp.MustCompile(`(?i)fecha:?\s*(` + exprDate + `)`), Group: 1,
			},
		},
	}
}
