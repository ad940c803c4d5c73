package types

import "time"

// Observation is a caller-defined, JSON-serialisable practice record.
// The pipeline treats it as opaque payload apart from the fields lifted into
// Metadata.
type Observation map[string]any

// Clone returns a deep copy of the observation.
func (o Observation) Clone() Observation {
	if o == nil {
		return nil
	}
	return cloneValue(map[string]any(o)).(map[string]any)
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case Observation:
		return Observation(cloneValue(map[string]any(t)).(map[string]any))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// Metadata is the cleartext projection of an observation, stored next to
// its ciphertext so the relay can filter without decrypting.
type Metadata struct {
	ObservationID ObservationID `json:"observation_id" validate:"required"`
	UserID        IdentityID    `json:"user_id" validate:"required"`
	SessionID     SessionID     `json:"session_id" validate:"required"`
	Timestamp     time.Time     `json:"timestamp" validate:"required"`
	Correct       bool          `json:"correct"`
	Classroom     string        `json:"classroom,omitempty"`
	SkillPath     string        `json:"skill_path,omitempty"`
	DealSubfolder string        `json:"deal_subfolder,omitempty"`
	DealNumber    int           `json:"deal_number,omitempty" validate:"gte=0"`
}

// EnvelopeScheme names how an envelope's content key is managed.
type EnvelopeScheme string

const (
	// SchemeStudentKey encrypts directly under the owner's symmetric key.
	// Viewers read it through grants.
	SchemeStudentKey EnvelopeScheme = "student-key"
	// SchemeRecipients encrypts under a one-time key that is wrapped for the
	// owner and separately for every required viewer.
	SchemeRecipients EnvelopeScheme = "recipients"
)

// WrappedKey is a one-time content key wrapped for one recipient.
// For the owner it is AEAD-sealed (nonce||ciphertext); for viewers it is
// RSA-OAEP encrypted.
type WrappedKey struct {
	RecipientID IdentityID `json:"recipient_id"`
	Wrapped     []byte     `json:"wrapped"`
}

// Envelope is one encrypted observation.
type Envelope struct {
	Scheme         EnvelopeScheme `json:"scheme,omitempty"`
	Ciphertext     []byte         `json:"ciphertext"`
	IV             []byte         `json:"iv"`
	Encrypted      bool           `json:"encrypted"`
	NeedsViewerKey bool           `json:"needs_viewer_key"`
	WrappedKeys    []WrappedKey   `json:"wrapped_keys,omitempty"`
}

// Clone returns a deep copy of the envelope.
func (e Envelope) Clone() Envelope {
	out := e
	out.Ciphertext = append([]byte(nil), e.Ciphertext...)
	out.IV = append([]byte(nil), e.IV...)
	if e.WrappedKeys != nil {
		out.WrappedKeys = make([]WrappedKey, len(e.WrappedKeys))
		for i, w := range e.WrappedKeys {
			out.WrappedKeys[i] = WrappedKey{RecipientID: w.RecipientID, Wrapped: append([]byte(nil), w.Wrapped...)}
		}
	}
	return out
}

// PendingEntry is one observation waiting for confirmed remote storage.
// Exactly one of Envelope and Raw is set, matching Encrypted.
type PendingEntry struct {
	Envelope      *Envelope   `json:"envelope,omitempty"`
	Raw           Observation `json:"raw_observation,omitempty"`
	Metadata      Metadata    `json:"metadata"`
	Encrypted     bool        `json:"encrypted"`
	QueuedAt      time.Time   `json:"queued_at"`
	ReencryptedAt *time.Time  `json:"reencrypted_at,omitempty"`
}

// ID returns the observation id the entry is keyed by.
func (p PendingEntry) ID() ObservationID { return p.Metadata.ObservationID }

// Clone returns a deep copy of the entry.
func (p PendingEntry) Clone() PendingEntry {
	out := p
	if p.Envelope != nil {
		env := p.Envelope.Clone()
		out.Envelope = &env
	}
	out.Raw = p.Raw.Clone()
	if p.ReencryptedAt != nil {
		at := *p.ReencryptedAt
		out.ReencryptedAt = &at
	}
	return out
}

// Record converts an encrypted entry into its relay wire row.
func (p PendingEntry) Record() ObservationRecord {
	rec := ObservationRecord{Metadata: p.Metadata}
	if p.Envelope != nil {
		rec.Scheme = p.Envelope.Scheme
		rec.Ciphertext = p.Envelope.Ciphertext
		rec.IV = p.Envelope.IV
		rec.WrappedKeys = p.Envelope.WrappedKeys
	}
	return rec
}

// ObservationRecord is one row exchanged with the relay: ciphertext plus
// cleartext metadata.
type ObservationRecord struct {
	Scheme      EnvelopeScheme `json:"scheme,omitempty"`
	Ciphertext  []byte         `json:"ciphertext"`
	IV          []byte         `json:"iv"`
	WrappedKeys []WrappedKey   `json:"wrapped_keys,omitempty"`
	Metadata    Metadata       `json:"metadata"`
}

// Envelope rebuilds the envelope carried by the row.
func (r ObservationRecord) Envelope() Envelope {
	return Envelope{
		Scheme:      r.Scheme,
		Ciphertext:  r.Ciphertext,
		IV:          r.IV,
		Encrypted:   true,
		WrappedKeys: r.WrappedKeys,
	}
}

// SubmitError reports a row the relay refused to store.
type SubmitError struct {
	ObservationID ObservationID `json:"observation_id,omitempty"`
	Error         string        `json:"error"`
}

// SubmitResult is the relay's answer to a batch submission.
type SubmitResult struct {
	Stored    int             `json:"stored"`
	StoredIDs []ObservationID `json:"stored_ids,omitempty"`
	Errors    []SubmitError   `json:"errors,omitempty"`
}

// Session is a process-local practice session tally.
type Session struct {
	SessionID    SessionID `json:"session_id"`
	StartedAt    time.Time `json:"started_at"`
	CorrectCount int       `json:"correct_count"`
	WrongCount   int       `json:"wrong_count"`
	Total        int       `json:"total"`
}
