// issue-dev-token prints a bearer token for a local or staging user. The
// claims carry the approval level and override limit the workflows gate on.
//
// Usage:
//   API_SECRET=... go run ./cmd/issue-dev-token --id 1 --name "Managing Director" --role md --level L3 --override-limit 250000
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mmdatafocus/brokerage_backend/middlewares"
	"github.com/mmdatafocus/brokerage_backend/models"
	"github.com/mmdatafocus/brokerage_backend/utils"
)

func main() {
	id := flag.Int("id", 0, "User id (required).")
	name := flag.String("name", "", "Display name.")
	role := flag.String("role", "", "Role, e.g. md or underwriter.")
	level := flag.String("level", "L1", "Approval level: L1, L2 or L3.")
	limit := flag.String("override-limit", "0", "Maximum minimum-premium shortfall the user may override.")
	flag.Parse()

	if *id <= 0 {
		fmt.Fprintln(os.Stderr, "--id is required")
		os.Exit(2)
	}
	if models.ApprovalLevel(strings.ToUpper(*level)).Rank() == 0 {
		fmt.Fprintf(os.Stderr, "unknown approval level %q\n", *level)
		os.Exit(2)
	}

	claim := utils.JwtCustomClaim{
		ID:               *id,
		Name:             *name,
		Role:             *role,
		ApprovalLevel:    strings.ToUpper(*level),
		MaxOverrideLimit: *limit,
	}
	// Same mapping the API applies, so a bad limit fails here rather than at login.
	if _, err := middlewares.ActorFromClaim(&claim); err != nil {
		fmt.Fprintf(os.Stderr, "invalid --override-limit: %v\n", err)
		os.Exit(2)
	}

	token, err := utils.JwtGenerate(claim)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
