package s3

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/minio/s3tables-go/internal/sig4"
)

// reservedPolicyElements cannot be set directly by the caller: the engine
// fills them in when the policy is finalized (spec.md §4.9).
var reservedPolicyElements = map[string]bool{
	"bucket":             true,
	"x-amz-algorithm":    true,
	"x-amz-credential":   true,
	"x-amz-date":         true,
	"policy":             true,
	"x-amz-signature":    true,
}

// noEqualityElements may not be used as an equality condition; they only
// make sense as starts-with or are rejected outright.
var noEqualityElements = map[string]bool{
	"success_action_redirect": true,
	"redirect":                true,
	"content-length-range":    true,
}

// noStartsWithElements may not be used as a starts-with condition.
var noStartsWithElements = map[string]bool{
	"success_action_status": true,
	"content-length-range":  true,
}

// PostPolicy builds the form-data fields for a browser-based POST upload,
// per spec.md §4.9. The zero value is ready to use; conditions accumulate
// via Eq/StartsWith/ContentLengthRange.
type PostPolicy struct {
	expiration time.Time

	equalities []policyCondition
	startsWith []policyCondition
	lengthLo   int64
	lengthHi   int64
	haveLength bool

	keySet bool
}

type policyCondition struct {
	element string
	value   string
}

// NewPostPolicy returns a PostPolicy expiring at expiration.
func NewPostPolicy(expiration time.Time) *PostPolicy {
	return &PostPolicy{expiration: expiration}
}

// Eq adds an equality condition. element is the form field name without the
// leading "$" (e.g. "key", "Content-Type").
func (p *PostPolicy) Eq(element, value string) error {
	lower := strings.ToLower(element)
	if reservedPolicyElements[lower] {
		return &ErrorResponse{Kind: ErrPostPolicyError, Code: "PostPolicyError",
			Message: "element " + element + " is reserved and cannot be set"}
	}
	if noEqualityElements[lower] {
		return &ErrorResponse{Kind: ErrPostPolicyError, Code: "PostPolicyError",
			Message: "element " + element + " cannot be used as an equality condition"}
	}
	if lower == "key" {
		p.keySet = true
	}
	p.equalities = append(p.equalities, policyCondition{element, value})
	return nil
}

// StartsWith adds a starts-with condition.
func (p *PostPolicy) StartsWith(element, value string) error {
	lower := strings.ToLower(element)
	if reservedPolicyElements[lower] {
		return &ErrorResponse{Kind: ErrPostPolicyError, Code: "PostPolicyError",
			Message: "element " + element + " is reserved and cannot be set"}
	}
	if noStartsWithElements[lower] {
		return &ErrorResponse{Kind: ErrPostPolicyError, Code: "PostPolicyError",
			Message: "element " + element + " cannot be used as a starts-with condition"}
	}
	if strings.HasPrefix(lower, "x-amz-") && !strings.HasPrefix(lower, "x-amz-meta-") {
		return &ErrorResponse{Kind: ErrPostPolicyError, Code: "PostPolicyError",
			Message: "x-amz- headers other than x-amz-meta- cannot be used as a starts-with condition"}
	}
	if lower == "key" {
		p.keySet = true
	}
	p.startsWith = append(p.startsWith, policyCondition{element, value})
	return nil
}

// ContentLengthRange sets the content-length-range condition.
func (p *PostPolicy) ContentLengthRange(lo, hi int64) {
	p.lengthLo, p.lengthHi, p.haveLength = lo, hi, true
}

// SignPostPolicy resolves region, assembles the policy JSON, and signs it, returning
// the full set of form fields the caller must include in the POST body.
func (c *Client) SignPostPolicy(bucket string, p *PostPolicy) (map[string]string, error) {
	if !p.keySet {
		return nil, &ErrorResponse{Kind: ErrPostPolicyError, Code: "PostPolicyError",
			Message: "policy must set an eq or starts-with condition on key", Bucket: bucket}
	}
	region, err := c.GetRegionCached(bucket, "")
	if err != nil {
		return nil, err
	}
	if region == "" {
		return nil, &ErrorResponse{Kind: ErrPostPolicyError, Code: "PostPolicyError",
			Message: "region must be resolved before signing a post policy", Bucket: bucket}
	}
	if c.creds == nil {
		return nil, &ErrorResponse{Kind: ErrPostPolicyError, Code: "PostPolicyError",
			Message: "post-policy signing requires a credential provider", Bucket: bucket}
	}
	credVal, err := c.creds.Retrieve()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	scope := sig4.Scope(now, region, "s3")
	credential := credVal.AccessKeyID + "/" + scope
	amzDate := sig4.AmzDate(now)

	var conditions []interface{}
	conditions = append(conditions, []string{"eq", "$bucket", bucket})
	for _, cond := range p.equalities {
		conditions = append(conditions, []string{"eq", "$" + cond.element, cond.value})
	}
	for _, cond := range p.startsWith {
		conditions = append(conditions, []string{"starts-with", "$" + cond.element, cond.value})
	}
	if p.haveLength {
		conditions = append(conditions, []interface{}{"content-length-range", p.lengthLo, p.lengthHi})
	}
	conditions = append(conditions, []string{"eq", "$x-amz-algorithm", sig4.Algorithm})
	conditions = append(conditions, []string{"eq", "$x-amz-credential", credential})
	if credVal.SessionToken != "" {
		conditions = append(conditions, []string{"eq", "$x-amz-security-token", credVal.SessionToken})
	}
	conditions = append(conditions, []string{"eq", "$x-amz-date", amzDate})

	doc := map[string]interface{}{
		"expiration": p.expiration.UTC().Format("2006-01-02T15:04:05.000Z"),
		"conditions": conditions,
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	policyB64, signature := sig4.PostPresignV4(raw, sig4.Credentials(credVal), region, "s3", c.keyCache, now)

	out := map[string]string{
		"x-amz-algorithm": sig4.Algorithm,
		"x-amz-credential": credential,
		"x-amz-date":      amzDate,
		"policy":          policyB64,
		"x-amz-signature": signature,
	}
	if credVal.SessionToken != "" {
		out["x-amz-security-token"] = credVal.SessionToken
	}
	return out, nil
}
