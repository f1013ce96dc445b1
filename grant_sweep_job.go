package main

import (
	"log"

	"github.com/termgate/termgate/internal/grant"
)

// sweepGrants drops handshake grants that expired before anyone redeemed
// them. Scheduled every minute from main.
func sweepGrants(grants *grant.Store) {
	before := grants.Len()
	grants.Sweep()
	if dropped := before - grants.Len(); dropped > 0 {
		log.Printf("Grant sweep: dropped %d expired grants", dropped)
	}
}
