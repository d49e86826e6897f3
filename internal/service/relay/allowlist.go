package relay

// AllowList is the fixed set of customer domains permitted to use the relay.
// Matching is exact and case-sensitive.
type AllowList struct {
	domains map[string]struct{}
}

// NewAllowList builds an allow-list from domains.
func NewAllowList(domains []string) AllowList {
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		if d != "" {
			set[d] = struct{}{}
		}
	}
	return AllowList{domains: set}
}

// Allowed reports whether domain is a member.
func (a AllowList) Allowed(domain string) bool {
	if domain == "" {
		return false
	}
	_, ok := a.domains[domain]
	return ok
}
