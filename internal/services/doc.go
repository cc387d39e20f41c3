// Package services defines the error vocabulary shared by pipeline stages.
//
// Stage and service code tags failures with one of the exported sentinel
// errors via Wrap; the workflow manager and the API facade use errors.Is
// against those sentinels to decide retry eligibility and the user-visible
// failure reason. Reason strings never contain script content, prompts, or
// provider payloads.
package services
