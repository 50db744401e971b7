package api

import "time"

// Instance lifecycle states reported in actual_status. The field is
// authoritative; the top-level status is the user's intent (e.g. "running"
// while the machine is still loading).
const (
	StatusLoading = "loading"
	StatusRunning = "running"
	StatusStopped = "stopped"
	StatusExited  = "exited"
)

// Instance is a provisioned machine owned by the current user.
type Instance struct {
	ID           string    `json:"id"`
	Label        string    `json:"label,omitempty"`
	Status       string    `json:"status"`
	ActualStatus string    `json:"actual_status"`
	OfferID      string    `json:"offer_id,omitempty"`
	GPUName      string    `json:"gpu_name"`
	NumGPUs      int       `json:"num_gpus"`
	DPHTotal     float64   `json:"dph_total"`
	DiskSize     float64   `json:"disk_size"` // GB
	SSHHost      string    `json:"ssh_host,omitempty"`
	SSHPort      int       `json:"ssh_port,omitempty"`
	Geolocation  string    `json:"geolocation,omitempty"`
	StartTime    time.Time `json:"start_time,omitempty"`
}

// InstancePage is the response shape of an instance listing.
type InstancePage struct {
	Instances []Instance `json:"instances"`
}

// CreateInstanceSpec describes a new instance to provision from an offer.
type CreateInstanceSpec struct {
	OfferID  string  `json:"offer_id"`
	DiskSize float64 `json:"disk_size"` // GB
	Label    string  `json:"label,omitempty"`
}

// CreateInstanceResult is the response to a creation request.
type CreateInstanceResult struct {
	ID string `json:"id"`
}
