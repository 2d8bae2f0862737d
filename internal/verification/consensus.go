package verification

import (
	"fmt"
	"sort"
	"strings"

	"verification-system/internal/domain"
)

// Evaluate computes the consensus classification for exactly three reports,
// one per distinct agent. The caller fills in call id and timestamp
// bookkeeping on the returned result. A duplicate agent name, or a primary
// name outside the reported set, is a programming error and panics.
func Evaluate(reports [3]domain.AgentReport, primary string) domain.VerificationResult {
	primaryIdx := -1
	for i, r := range reports {
		for j := i + 1; j < len(reports); j++ {
			if r.AgentName == reports[j].AgentName {
				panic(fmt.Sprintf("verification: duplicate agent %q in evaluation", r.AgentName))
			}
		}
		if r.AgentName == primary {
			primaryIdx = i
		}
	}
	if primaryIdx == -1 {
		panic(fmt.Sprintf("verification: primary agent %q not among reports", primary))
	}

	pairs := [3][2]int{{0, 1}, {0, 2}, {1, 2}}
	var matches [][2]int
	var discrepancies []string
	for _, p := range pairs {
		a, b := reports[p[0]], reports[p[1]]
		if ordersEqual(a.Order, b.Order) {
			matches = append(matches, p)
		} else {
			discrepancies = append(discrepancies,
				fmt.Sprintf("%s vs %s: %s", a.AgentName, b.AgentName, describeDifferences(a.Order, b.Order)))
		}
	}

	if discrepancies == nil {
		discrepancies = []string{}
	}
	res := domain.VerificationResult{
		MatchingAgents: []string{},
		Discrepancies:  discrepancies,
	}

	// Order equality is transitive, so either all three pairs agree, exactly
	// one pair does, or none do. One agreeing pair means two of the three
	// agents share an order: that is the 2/3 majority.
	switch len(matches) {
	case 3:
		res.ConsensusLevel = domain.ConsensusPerfect
		res.ConfidencePercent = 100
		res.Approved = true
		res.Action = domain.ActionSendToKitchen
		final := reports[primaryIdx].Order
		res.FinalOrder = &final
		res.MatchingAgents = []string{reports[0].AgentName, reports[1].AgentName, reports[2].AgentName}
	case 1:
		pair := matches[0]
		res.ConsensusLevel = domain.ConsensusMajority
		res.ConfidencePercent = 67
		res.Approved = true
		res.Action = domain.ActionSendToKitchen
		// The two agreeing agents share the order; prefer the primary's copy
		// when it is part of the pair.
		chosen := pair[0]
		if pair[1] == primaryIdx {
			chosen = pair[1]
		}
		final := reports[chosen].Order
		res.FinalOrder = &final
		res.MatchingAgents = []string{reports[pair[0]].AgentName, reports[pair[1]].AgentName}
	default:
		res.ConsensusLevel = domain.ConsensusNone
		res.ConfidencePercent = 0
		res.Approved = false
		res.Action = domain.ActionRequestClarification
	}
	return res
}

// ordersEqual treats the item lists as multisets: both orders must have the
// same number of items and, after sorting by a deterministic key, be
// element-wise equal. Names and modifiers compare case-insensitively;
// special instructions are ignored.
func ordersEqual(a, b domain.Order) bool {
	if len(a.Items) != len(b.Items) {
		return false
	}
	as, bs := sortedItems(a.Items), sortedItems(b.Items)
	for i := range as {
		if !itemsEqual(as[i], bs[i]) {
			return false
		}
	}
	return true
}

func itemsEqual(a, b domain.OrderLineItem) bool {
	if !strings.EqualFold(a.Name, b.Name) || a.Quantity != b.Quantity {
		return false
	}
	am, bm := normalizeModifiers(a.Modifiers), normalizeModifiers(b.Modifiers)
	if len(am) != len(bm) {
		return false
	}
	for i := range am {
		if am[i] != bm[i] {
			return false
		}
	}
	return true
}

// normalizeModifiers lower-cases, de-duplicates and sorts a modifier set.
func normalizeModifiers(mods []string) []string {
	seen := make(map[string]bool, len(mods))
	out := make([]string, 0, len(mods))
	for _, m := range mods {
		m = strings.ToLower(strings.TrimSpace(m))
		if m == "" || seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	sort.Strings(out)
	return out
}

func itemKey(it domain.OrderLineItem) string {
	return fmt.Sprintf("%s|%d|%s", strings.ToLower(it.Name), it.Quantity, strings.Join(normalizeModifiers(it.Modifiers), ","))
}

func sortedItems(items []domain.OrderLineItem) []domain.OrderLineItem {
	out := make([]domain.OrderLineItem, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool { return itemKey(out[i]) < itemKey(out[j]) })
	return out
}

// describeDifferences renders a human-readable, positional diff of two
// orders that failed the equality test.
func describeDifferences(a, b domain.Order) string {
	var diffs []string
	if len(a.Items) != len(b.Items) {
		diffs = append(diffs, fmt.Sprintf("item count (%d vs %d)", len(a.Items), len(b.Items)))
	}
	n := len(a.Items)
	if len(b.Items) < n {
		n = len(b.Items)
	}
	for i := 0; i < n; i++ {
		ai, bi := a.Items[i], b.Items[i]
		if !strings.EqualFold(ai.Name, bi.Name) {
			diffs = append(diffs, fmt.Sprintf("item %d name (%s vs %s)", i+1, ai.Name, bi.Name))
		}
		if ai.Quantity != bi.Quantity {
			diffs = append(diffs, fmt.Sprintf("item %d quantity (%d vs %d)", i+1, ai.Quantity, bi.Quantity))
		}
		am, bm := normalizeModifiers(ai.Modifiers), normalizeModifiers(bi.Modifiers)
		if !stringSlicesEqual(am, bm) {
			diffs = append(diffs, fmt.Sprintf("item %d modifiers (%v vs %v)", i+1, am, bm))
		}
	}
	if len(diffs) == 0 {
		return "different items"
	}
	return strings.Join(diffs, ", ")
}

func stringSlicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
