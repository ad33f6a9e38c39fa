// Package server exposes datasets over a JSON HTTP API.
//
//	POST /api/{datasetId}/initialize  build the dataset if needed, return its stats
//	POST /api/{datasetId}/ask         answer {"question": "..."} against a ready dataset
//	GET  /api/{datasetId}/stats       lifecycle state and stats of one dataset
//	GET  /api/datasets                every configured dataset
//	GET  /api/health                  liveness
package server
