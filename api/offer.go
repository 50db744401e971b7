package api

// Offer is a rentable machine listing from the marketplace. Offers are
// immutable once fetched; the marketplace owns them.
type Offer struct {
	ID          string  `json:"id"`
	GPUName     string  `json:"gpu_name"`
	NumGPUs     int     `json:"num_gpus"`
	GPURAM      int64   `json:"gpu_ram"` // per-GPU memory in MB
	CPUCores    int     `json:"cpu_cores,omitempty"`
	RAM         int64   `json:"cpu_ram,omitempty"` // system memory in MB
	DPHTotal    float64 `json:"dph_total"`         // price in dollars per hour
	DiskSpace   float64 `json:"disk_space"`        // available disk in GB
	Geolocation string  `json:"geolocation"`
	Reliability float64 `json:"reliability,omitempty"` // host uptime score, 0-1
	CUDAVersion string  `json:"cuda_max_good,omitempty"`
	InetDown    float64 `json:"inet_down,omitempty"` // Mbps
	InetUp      float64 `json:"inet_up,omitempty"`   // Mbps
	Rentable    bool    `json:"rentable"`
}

// OfferQuery filters an offer search. Zero values are omitted from the
// request; results come back ranked by ascending price.
type OfferQuery struct {
	GPUName   string  // e.g. "RTX 4090"
	Region    string  // geolocation prefix, e.g. "US"
	MaxDPH    float64 // upper bound on dph_total
	MinGPURAM int64   // per-GPU memory floor in MB
	NumGPUs   int     // exact GPU count, 0 for any
	Limit     int
}

// OfferPage is the response shape of an offer search.
type OfferPage struct {
	Offers []Offer `json:"offers"`
}
