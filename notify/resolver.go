package notify

import (
	"cmp"
	"slices"
	"strings"

	"github.com/samber/lo"

	"teleshop/models"
)

// ResolveRecipients returns the chat identities an order event goes to: the owner
// first, then staff ordered by user id. Users without an identity are skipped and
// no identity is returned twice.
func ResolveRecipients(owner models.User, staff []models.User) []string {
	sorted := slices.Clone(staff)
	slices.SortStableFunc(sorted, func(a, b models.User) int {
		return cmp.Compare(a.ID, b.ID)
	})

	ids := make([]string, 0, len(sorted)+1)
	if id := strings.TrimSpace(owner.TelegramID); id != "" {
		ids = append(ids, id)
	}
	for _, u := range sorted {
		if id := strings.TrimSpace(u.TelegramID); id != "" {
			ids = append(ids, id)
		}
	}
	return lo.Uniq(ids)
}
