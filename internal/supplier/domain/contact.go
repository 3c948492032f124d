package domain

import "strings"

var purchaseFunctionMarkers = []string{"compra", "purchas"}

// IsPurchaseContact reports whether the job function names a purchasing role.
func IsPurchaseContact(c Contact) bool {
	fn := strings.ToLower(c.JobFunction)
	if fn == "" {
		return false
	}
	for _, marker := range purchaseFunctionMarkers {
		if strings.Contains(fn, marker) {
			return true
		}
	}
	return false
}

// SelectPurchaseContact picks the first purchasing contact of v, falling
// back to the vendor's own details.
func SelectPurchaseContact(v Vendor, contacts []Contact) ContactInfo {
	for _, c := range contacts {
		if !IsPurchaseContact(c) {
			continue
		}
		return ContactInfo{
			Name:  c.Name,
			Phone: firstNonEmpty(c.Phone, c.Mobile, v.Phone),
			Email: firstNonEmpty(c.Email, v.Email),
		}
	}
	return ContactInfo{
		Name:  v.Name,
		Phone: firstNonEmpty(v.Phone, v.Mobile),
		Email: v.Email,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
