// Package catalog holds the static, per-cluster-type capability catalog.
//
// A catalog describes every known cluster type: its attributes, commands and
// events (name, data type, declared access) and its optional feature bits
// together with the exclusions each feature implies. It is loaded once at
// startup and is read-only afterwards, so a *Catalog is safe for concurrent
// use without locking.
//
// # File Format
//
// Catalogs are written in YAML (JSON is accepted as a YAML subset) or loaded
// from a compiled CBOR file:
//
//	version: "1.3"
//	deviceTypes:
//	  - id: 0x0100
//	    name: OnOffLight
//	clusters:
//	  - id: 0x0006
//	    name: OnOff
//	    attributes:
//	      - {id: 0x0000, name: OnOff, type: bool, access: R}
//	      - {id: 0x4001, name: OnTime, type: uint16, access: RW}
//	    commands:
//	      - {id: 0x00, name: Off}
//	    base:
//	      notWritable: [OnTime]
//	    features:
//	      - {bit: 0, code: LT, name: Lighting}
//
// Exclusion lists reference attributes and commands by numeric ID or by name.
// A feature's lists are the complete exclusions that apply when that feature
// is the only one active; see package capability for the combination rule.
package catalog
