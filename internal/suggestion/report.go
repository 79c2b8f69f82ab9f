package suggestion

import (
	"fmt"
	"io"
	"strings"

	"github.com/RMahshie/apscanner/pkg/models"
)

// WriteReport prints a human friendly summary of a reading: the 2.4GHz
// networks that should move, then the full 5GHz advice for every network.
func WriteReport(w io.Writer, r *models.Reading) error {
	var b strings.Builder

	fmt.Fprintf(&b, "AP Scanner\nLocal: %s\nTaken at: %s\n", r.Local, r.TakenAt().Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Number of 2.4GHz networks: %d\nNumber of 5GHz networks: %d\n\n", r.Wifi24GHz.Len(), r.Wifi5GHz.Len())

	b.WriteString("Suggestions for Wifi 2.4GHz networks.\n")
	for _, ch := range r.Wifi24GHz.Channels() {
		for _, p := range r.Wifi24GHz[ch] {
			if p.Suggestion.Channel == p.Observation.Channel {
				continue
			}
			fmt.Fprintf(&b, "Wifi network with SSID and MAC: %s, %s.\n\tCurrent channel: %d.\n\tSuggested change: %d\n",
				p.Observation.SSID, p.Observation.MAC, p.Observation.Channel, p.Suggestion.Channel)
		}
	}

	b.WriteString("\nThe suggested distributions for Wifi 5GHz networks.\n")
	for _, ch := range r.Wifi5GHz.Channels() {
		for _, p := range r.Wifi5GHz[ch] {
			s := p.Suggestion.Record
			fmt.Fprintf(&b, "Wifi network with SSID and MAC: %s, %s.\n\tSuggested Channels per channel width:\n",
				p.Observation.SSID, p.Observation.MAC)
			fmt.Fprintf(&b, "\t\t20MHz: %d\n\t\tDFS 20MHz: %d\n", s.NDFS20, s.DFS20)
			fmt.Fprintf(&b, "\t\t40MHz: %d\n\t\tDFS 40MHz: %d\n", s.NDFS40, s.DFS40)
			fmt.Fprintf(&b, "\t\t80MHz: %d\n\t\tDFS 80MHz: %d\n", s.NDFS80, s.DFS80)
			fmt.Fprintf(&b, "\t\t160MHz: %d\n", s.DFS160)
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}
