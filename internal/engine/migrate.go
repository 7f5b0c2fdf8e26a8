package engine

import (
	"fmt"
	"time"

	"pulsefit/workout-app/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
)

// Each historical payload shape gets its own typed structure and one explicit
// upgrade per version transition. A stored payload is never validated against
// the current shape without first being migrated to it.

// payloadV1 is the pre-release shape: rest seconds lived on each prescription
// set, and there were no per-set distance targets, no per-set RPE, and no
// flags block.
type payloadV1 struct {
	SchemaVersion int `bson:"schemaVersion"`
	Identity      struct {
		Name string              `bson:"name"`
		Type domain.ExerciseType `bson:"type"`
	} `bson:"identity"`
	Prescription struct {
		Sets []targetSetV1 `bson:"sets"`
	} `bson:"prescription"`
	Performance struct {
		Sets []setResultV1 `bson:"sets"`
	} `bson:"performance"`
	OverallRPE *int    `bson:"overallRpe,omitempty"`
	Note       *string `bson:"note,omitempty"`
}

type targetSetV1 struct {
	Reps        *int     `bson:"reps,omitempty"`
	Load        *float64 `bson:"load,omitempty"`
	LoadUnit    string   `bson:"loadUnit,omitempty"`
	DurationSec *int     `bson:"durationSec,omitempty"`
	RestSeconds *int     `bson:"restSeconds,omitempty"`
}

type setResultV1 struct {
	Reps        *int       `bson:"reps,omitempty"`
	Load        *float64   `bson:"load,omitempty"`
	DurationSec *int       `bson:"durationSec,omitempty"`
	CompletedAt *time.Time `bson:"completedAt,omitempty"`
}

// DecodePayload decodes a stored payload document, migrating older schema
// versions forward to the current shape. A version above the current one
// means the reader is older than the data; that read fails rather than
// guess-migrating downward.
func DecodePayload(raw bson.Raw) (*domain.Payload, error) {
	version, err := storedSchemaVersion(raw)
	if err != nil {
		return nil, err
	}

	switch version {
	case 1:
		var legacy payloadV1
		if err := bson.Unmarshal(raw, &legacy); err != nil {
			return nil, fmt.Errorf("decode v1 payload: %w", err)
		}
		return upgradeV1(legacy), nil
	case domain.PayloadSchemaVersion:
		var payload domain.Payload
		if err := bson.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return &payload, nil
	default:
		return nil, &domain.UnsupportedSchemaVersionError{Version: version}
	}
}

// EncodePayload marshals a payload for storage.
func EncodePayload(p domain.Payload) (bson.Raw, error) {
	raw, err := bson.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return bson.Raw(raw), nil
}

// upgradeV1 lifts a v1 payload to the current shape. The transform is
// deterministic and information-preserving: set-level rest collapses to the
// payload level (first non-nil wins), new fields start null, flags start
// cleared.
func upgradeV1(legacy payloadV1) *domain.Payload {
	out := &domain.Payload{
		SchemaVersion: domain.PayloadSchemaVersion,
		Identity: domain.ExerciseIdentity{
			Name: legacy.Identity.Name,
			Type: legacy.Identity.Type,
		},
		OverallRPE: legacy.OverallRPE,
		Note:       legacy.Note,
	}

	out.Prescription.Sets = make([]domain.TargetSet, len(legacy.Prescription.Sets))
	for i, s := range legacy.Prescription.Sets {
		out.Prescription.Sets[i] = domain.TargetSet{
			Reps:        s.Reps,
			Load:        s.Load,
			LoadUnit:    s.LoadUnit,
			DurationSec: s.DurationSec,
		}
		if out.Prescription.RestSeconds == nil && s.RestSeconds != nil {
			out.Prescription.RestSeconds = s.RestSeconds
		}
	}

	out.Performance.Sets = make([]domain.SetResult, len(legacy.Performance.Sets))
	for i, s := range legacy.Performance.Sets {
		out.Performance.Sets[i] = domain.SetResult{
			Reps:        s.Reps,
			Load:        s.Load,
			DurationSec: s.DurationSec,
			CompletedAt: s.CompletedAt,
		}
	}

	// v1 predates the invariant checks, so repair any length drift here
	// instead of letting it leak into the reducer.
	for len(out.Performance.Sets) < len(out.Prescription.Sets) {
		out.Performance.Sets = append(out.Performance.Sets, domain.SetResult{})
	}
	if len(out.Performance.Sets) > len(out.Prescription.Sets) {
		out.Performance.Sets = out.Performance.Sets[:len(out.Prescription.Sets)]
	}
	return out
}

func storedSchemaVersion(raw bson.Raw) (int, error) {
	val, err := raw.LookupErr("schemaVersion")
	if err != nil {
		return 0, fmt.Errorf("payload document has no schemaVersion: %w", err)
	}
	version, ok := val.AsInt64OK()
	if !ok {
		return 0, fmt.Errorf("payload schemaVersion is not an integer")
	}
	return int(version), nil
}
