// sendgoal posts a flight goal to a running replan server.
//
// Usage:
//
//	sendgoal -server http://localhost:8080 -x 10 -y -2 -z 1
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

var (
	server = flag.String("server", "http://localhost:8080", "Replan server base URL")
	x      = flag.Float64("x", 0, "Goal x (m)")
	y      = flag.Float64("y", 0, "Goal y (m)")
	z      = flag.Float64("z", 1.0, "Goal z (m)")
)

func main() {
	flag.Parse()

	body, err := json.Marshal(map[string]float64{"x": *x, "y": *y, "z": *z})
	if err != nil {
		log.Fatalf("failed to encode goal: %v", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Post(*server+"/api/goal", "application/json", bytes.NewReader(body))
	if err != nil {
		log.Fatalf("failed to post goal: %v", err)
	}
	defer resp.Body.Close()

	reply, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		log.Fatalf("server rejected goal: %s %s", resp.Status, bytes.TrimSpace(reply))
	}
	fmt.Printf("%s\n", bytes.TrimSpace(reply))
}
