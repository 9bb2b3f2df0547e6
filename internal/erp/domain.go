package erp

// Domain is an ERP search filter in prefix (Polish) notation.
// Every Domain value built by this package is a single complete expression.
type Domain []any

// Term builds a single (field, operator, value) condition
func Term(field, operator string, value any) Domain {
	return Domain{[]any{field, operator, value}}
}

// And joins expressions so that all must hold
func And(parts ...Domain) Domain {
	return join("&", parts)
}

// Or joins expressions so that at least one must hold
func Or(parts ...Domain) Domain {
	return join("|", parts)
}

func join(operator string, parts []Domain) Domain {
	nonEmpty := make([]Domain, 0, len(parts))
	for _, p := range parts {
		if len(p) > 0 {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if len(nonEmpty) == 0 {
		return Domain{}
	}

	out := make(Domain, 0, len(nonEmpty)*2)
	for i := 1; i < len(nonEmpty); i++ {
		out = append(out, operator)
	}
	for _, p := range nonEmpty {
		out = append(out, p...)
	}
	return out
}
