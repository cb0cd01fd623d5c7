// flightreport prints a post-flight summary from a flight log database:
// state transitions, published trajectories, and safety event counts.
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/banshee-data/kinoreplan/internal/store"
)

var (
	dbFile = flag.String("db", "flight_data.db", "Flight log database file")
	limit  = flag.Int("limit", 50, "Max transitions to print")
)

func main() {
	flag.Parse()

	fl, err := store.OpenLatest(*dbFile)
	if err != nil {
		log.Fatalf("failed to open flight log: %v", err)
	}
	defer fl.Close()

	transitions, err := fl.Transitions(*limit)
	if err != nil {
		log.Fatalf("failed to read transitions: %v", err)
	}
	fmt.Printf("Transitions (newest first, max %d):\n", *limit)
	for _, tr := range transitions {
		fmt.Printf("  %s  %s\n", tr.Timestamp.Format("15:04:05.000"), tr.String())
	}

	msgs, err := fl.Trajectories()
	if err != nil {
		log.Fatalf("failed to read trajectories: %v", err)
	}
	fmt.Printf("\nPublished trajectories: %d\n", len(msgs))
	for _, msg := range msgs {
		fmt.Printf("  id=%d order=%d control_points=%d start=%s\n",
			msg.TrajectoryID, msg.Order, len(msg.PositionControlPoints),
			msg.StartTime.Format("15:04:05.000"))
	}

	for _, kind := range []string{"trajectory_collision", "goal_relocated", "goal_unsafe_retry"} {
		n, err := fl.SafetyEventCount(kind)
		if err != nil {
			log.Fatalf("failed to count safety events: %v", err)
		}
		fmt.Printf("\nSafety events %q: %d", kind, n)
	}
	fmt.Println()
}
