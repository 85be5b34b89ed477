package analytics

import (
	"math/big"
	"regexp"

	"github.com/spec-kit/agency-dashboard/internal/domain"
)

var leadingDigits = regexp.MustCompile(`^\d+`)

// NextClientID returns one more than the largest leading numeric run among
// existing client ids, or "1" when there is none. Runs of any length are
// compared exactly. Callers must serialize allocation and creation.
func NextClientID(clients []domain.Client) string {
	highest := new(big.Int)
	n := new(big.Int)
	for _, c := range clients {
		run := leadingDigits.FindString(c.ClientID)
		if run == "" {
			continue
		}
		if _, ok := n.SetString(run, 10); !ok {
			continue
		}
		if n.Cmp(highest) > 0 {
			highest.Set(n)
		}
	}
	return highest.Add(highest, big.NewInt(1)).String()
}
