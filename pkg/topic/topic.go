// Package topic builds and classifies the SDS wire topics (C5). The
// layout is fixed by §4.5 and must match bit-exactly:
//
//	sds/<table>/config               Owner publishes, retained
//	sds/<table>/state                Owner publishes, retained
//	sds/<table>/state/<device-id>    Device publishes, not retained
//	sds/<table>/status/<device-id>   Device publishes, retained, LWT-eligible
package topic

import (
	"strings"

	"github.com/newtron-network/sds-runtime/pkg/schema"
)

// ReservedPrefix is the namespace user "raw" pub/sub must not touch
// (§4.5, §6).
const ReservedPrefix = "sds/"

const (
	segConfig = "config"
	segState  = "state"
	segStatus = "status"
)

// IsReserved reports whether topic falls in the sds/ namespace.
func IsReserved(topic string) bool {
	return strings.HasPrefix(topic, ReservedPrefix)
}

// Config returns the Config-section topic for table.
func Config(table string) string {
	return ReservedPrefix + table + "/" + segConfig
}

// OwnerState returns the Owner's State-section topic for table.
func OwnerState(table string) string {
	return ReservedPrefix + table + "/" + segState
}

// DeviceState returns a Device's per-node State topic for table.
func DeviceState(table, deviceID string) string {
	return ReservedPrefix + table + "/" + segState + "/" + deviceID
}

// Status returns a Device's per-node Status topic for table.
func Status(table, deviceID string) string {
	return ReservedPrefix + table + "/" + segStatus + "/" + deviceID
}

// LWTFilter returns the last-will topic a node registers for itself at
// connect time, covering its status topic in every table (§4.6):
// sds/+/status/<self-node-id>.
func LWTFilter(nodeID string) string {
	return ReservedPrefix + "+/" + segStatus + "/" + nodeID
}

// Classified is the result of parsing an inbound topic's trailing path
// components (§4.5).
type Classified struct {
	Table      string
	Section    schema.SectionKind
	SourceNode string // set for device-published state/status topics
	HasSource  bool
}

// Classify parses topic into its table/section/source-node components.
// ok is false if topic is not a well-formed sds/<table>/... topic.
func Classify(topic string) (Classified, bool) {
	if !IsReserved(topic) {
		return Classified{}, false
	}
	rest := strings.TrimPrefix(topic, ReservedPrefix)
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Classified{}, false
	}
	table := parts[0]

	switch parts[1] {
	case segConfig:
		if len(parts) != 2 {
			return Classified{}, false
		}
		return Classified{Table: table, Section: schema.SectionConfig}, true

	case segState:
		switch len(parts) {
		case 2:
			return Classified{Table: table, Section: schema.SectionState}, true
		case 3:
			if parts[2] == "" {
				return Classified{}, false
			}
			return Classified{Table: table, Section: schema.SectionState, SourceNode: parts[2], HasSource: true}, true
		default:
			return Classified{}, false
		}

	case segStatus:
		if len(parts) != 3 || parts[2] == "" {
			return Classified{}, false
		}
		return Classified{Table: table, Section: schema.SectionStatus, SourceNode: parts[2], HasSource: true}, true

	default:
		return Classified{}, false
	}
}
