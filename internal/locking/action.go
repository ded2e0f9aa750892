package locking

import "fmt"

type actionKind int

const (
	actionNotApplicable actionKind = iota
	actionLock
)

// Action is the lock intent declared statically on an operation. The resource id is
// resolved at request time from the path parameter named by IDParam.
type Action struct {
	kind         actionKind
	ResourceType string
	IDParam      string
}

// NotApplicable marks read-only or idempotent-by-construction operations.
func NotApplicable() Action {
	return Action{kind: actionNotApplicable}
}

func Lock(resourceType, idParam string) Action {
	return Action{kind: actionLock, ResourceType: resourceType, IDParam: idParam}
}

func (a Action) Required() bool {
	return a.kind == actionLock
}

func (a Action) Validate() error {
	if !a.Required() {
		return nil
	}
	if a.ResourceType == "" || a.IDParam == "" {
		return fmt.Errorf("%w: lock action needs a resource type and id parameter", ErrInvalidKey)
	}
	return nil
}

// Key builds the lock key for merchantID from the request's path parameters.
func (a Action) Key(merchantID string, params map[string]string) (Key, error) {
	if !a.Required() {
		return Key{}, fmt.Errorf("%w: action does not lock", ErrInvalidKey)
	}
	key := Key{
		MerchantID:   merchantID,
		ResourceType: a.ResourceType,
		ResourceID:   params[a.IDParam],
	}
	if err := key.Validate(); err != nil {
		return Key{}, err
	}
	return key, nil
}

func (a Action) String() string {
	if !a.Required() {
		return "not_applicable"
	}
	return "lock(" + a.ResourceType + ":" + a.IDParam + ")"
}
