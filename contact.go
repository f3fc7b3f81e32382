package paymentrequest

// joinName concatenates the given and family name with a single space,
// degrading to whichever part is present. Both empty yields nil.
func joinName(given, family string) *string {
	switch {
	case given != "" && family != "":
		return stringPtr(given + " " + family)
	case given != "":
		return stringPtr(given)
	case family != "":
		return stringPtr(family)
	default:
		return nil
	}
}

// optionalString maps the empty string to absent.
func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return stringPtr(s)
}

func stringPtr(s string) *string {
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// addressLines drops empty entries and never returns nil.
func addressLines(lines ...string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
