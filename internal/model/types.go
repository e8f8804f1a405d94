package model

import "time"

// ProbeStep is one direct query against a resolver.
type ProbeStep struct {
	Index         int       `json:"index"`
	Server        string    `json:"server"`
	QueryName     string    `json:"query_name"`
	QueryType     string    `json:"query_type"`
	Transport     string    `json:"transport"`
	Rcode         string    `json:"rcode"`
	Authenticated bool      `json:"authenticated"`
	Answers       []string  `json:"answers,omitempty"`
	Addresses     []string  `json:"addresses,omitempty"`
	RTT           string    `json:"rtt"`
	Outcome       string    `json:"outcome"`
	Error         string    `json:"error,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

type Diagnosis struct {
	Classification string   `json:"classification"`
	Summary        string   `json:"summary"`
	EvidenceSteps  []int    `json:"evidence_steps"`
	Hints          []string `json:"hints,omitempty"`
}

type ProbeResult struct {
	Hostname  string      `json:"hostname"`
	Steps     []ProbeStep `json:"steps"`
	Diagnosis Diagnosis   `json:"diagnosis"`
}
