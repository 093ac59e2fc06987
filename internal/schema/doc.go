// Package schema defines the JSON records that make up a storyreel workspace.
//
// # Overview
//
// A workspace stores one record per project in projects/<slug>/project.json
// plus a cached index.json at the root. The per-project record is
// authoritative; the index is a projection that can always be rebuilt from
// the records (see package reconcile).
//
// # Project Files
//
//	{
//	  "id": "6f0c1d9e-0d55-4f0b-a1a8-0d3f2b8c7e11",
//	  "projectName": "Demo",
//	  "videoGenerator": "",
//	  "notes": "",
//	  "createdAt": "2026-01-10T07:36:29Z",
//	  "updatedAt": "2026-01-10T07:36:29Z",
//	  "prompts": [ { "id": "...", "text": "...", "attachments": [] } ],
//	  "transitions": [ { "sceneIndex": 0, "description": "cut", "updatedAt": "..." } ]
//	}
//
// The order of "prompts" is the scene order. Transitions are keyed by the
// position of the scene that precedes them, never by scene id.
//
// # Legacy Records
//
// Records written by older versions may lack fields. ReadProjectFile reports
// which required keys were absent so callers can repair the record, and
// Backfill fills the optional ones (rating, transitions, attachments).
//
// # Design Principles
//
//   - Flat camelCase JSON, one file per project
//   - Timestamps are RFC 3339
//   - Empty values are explicit ([] rather than null) once a record is written
package schema
