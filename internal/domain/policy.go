package domain

// PolicyInput is the document handed to the registration policy engine.
type PolicyInput struct {
	Operation      string         `json:"operation"`
	Owner          string         `json:"owner"`
	PublicKey      uint64         `json:"public_key"`
	IdentifierHash IdentifierHash `json:"identifier_hash"`
}

type PolicyDeny struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type PolicyResult struct {
	Allow bool         `json:"allow"`
	Deny  []PolicyDeny `json:"deny,omitempty"`
}

type PolicyEvaluation struct {
	BundleID   string
	BundleHash string
	Result     PolicyResult
}
