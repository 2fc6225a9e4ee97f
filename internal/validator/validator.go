// Package validator implements spec.md §4.8's Reality Validator: a
// post-generation filter over (ThinkOutput, speech) that rejects identity
// drift outright and flags everything else as a non-blocking warning.
// Grounded on original_source/ghost/cognition/validator.py's RealityValidator,
// with the auto-correction rewrite table spec.md §4.8 specifies in place of
// the original's no-op "loose mode" auto_correct.
package validator

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Saguny/projectghost/internal/cognition"
)

// Severity classifies a Result.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Result is the outcome of a single Validate call.
type Result struct {
	Approved   bool
	Violations []string
	Severity   Severity
}

func (r Result) String() string {
	if r.Approved {
		return "APPROVED"
	}
	return "REJECTED: " + strings.Join(r.Violations, "; ")
}

// BeliefLookup is the subset of beliefs.Store the validator needs to check
// for conflicts against previously stored facts.
type BeliefLookup interface {
	Query(ctx context.Context, entity, relation string) (string, bool)
}

var identityDenialPhrases = []string{
	"i am a human", "i'm a human", "i am a person", "i'm a person",
	"i have a body", "i have skin", "i have blood",
	"i am not an ai", "i'm not an ai", "i am not a bot",
}

var impossiblePhysicalPhrases = []string{
	"eating lunch", "eating dinner", "eating food", "drinking water",
	"drinking coffee", "going to sleep", "waking up in bed",
	"walking to the store", "driving a car", "sitting on a chair",
}

var allowedActions = map[string]bool{
	"query_memory": true, "store_fact": true, "update_need": true,
	"send_message": true, "wait": true, "reflect": true,
	"search_web": true, "check_time": true,
}

var selfEntities = map[string]bool{"self": true, "i": true, "me": true, "agent": true}

// correctionRules are applied in order over the running text; each rule
// replaces every match of its pattern.
var correctionRules = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)\bi see\b`), "i understand"},
	{regexp.MustCompile(`(?i)\bhere\b`), "in this conversation"},
}

// Validator enforces reality constraints on cognitive output.
type Validator struct {
	log     zerolog.Logger
	beliefs BeliefLookup
}

// New constructs a Validator backed by beliefs for conflict checking.
func New(log zerolog.Logger, beliefs BeliefLookup) *Validator {
	return &Validator{
		log:     log.With().Str("component", "validator").Logger(),
		beliefs: beliefs,
	}
}

// Validate runs all five checks and returns the combined result.
func (v *Validator) Validate(ctx context.Context, think cognition.ThinkOutput, speech string) Result {
	var violations []string

	violations = append(violations, v.checkIdentityDenialInSpeech(speech)...)
	violations = append(violations, v.checkIdentityDenialInBeliefUpdates(think.BeliefUpdates)...)
	violations = append(violations, checkPhysicalActions(speech)...)
	violations = append(violations, v.checkBeliefConflicts(ctx, think.BeliefUpdates)...)
	if think.ActionRequest != nil {
		violations = append(violations, checkActionRequest(*think.ActionRequest)...)
	}

	severity := SeverityInfo
	approved := true
	for _, vi := range violations {
		if strings.Contains(vi, "CRITICAL") {
			severity = SeverityCritical
			approved = false
			break
		}
	}
	if approved && len(violations) > 0 {
		severity = SeverityWarning
	}

	if !approved {
		v.log.Warn().Strs("violations", violations).Msg("validation failed")
	} else if len(violations) > 0 {
		v.log.Info().Strs("violations", violations).Msg("validation passed with warnings")
	}

	return Result{Approved: approved, Violations: violations, Severity: severity}
}

func (v *Validator) checkIdentityDenialInSpeech(speech string) []string {
	var violations []string
	lower := strings.ToLower(speech)
	for _, phrase := range identityDenialPhrases {
		if strings.Contains(lower, phrase) {
			violations = append(violations, fmt.Sprintf("CRITICAL: identity denial detected (%q)", phrase))
		}
	}
	return violations
}

func (v *Validator) checkIdentityDenialInBeliefUpdates(updates []cognition.BeliefUpdate) []string {
	var violations []string
	for _, u := range updates {
		entity := strings.ToLower(u.Entity)
		relation := strings.ToLower(u.Relation)
		value := strings.ToLower(u.Value)
		if !selfEntities[entity] {
			continue
		}
		if relation == "has_body" && value == "true" {
			violations = append(violations, "CRITICAL: attempting to assert has_body=true")
		}
		if relation == "is_ai" && value == "false" {
			violations = append(violations, "CRITICAL: attempting to deny AI nature")
		}
	}
	return violations
}

func checkPhysicalActions(speech string) []string {
	var violations []string
	lower := strings.ToLower(speech)
	for _, phrase := range impossiblePhysicalPhrases {
		if strings.Contains(lower, phrase) {
			violations = append(violations, fmt.Sprintf("WARNING: improbable physical claim detected (%q)", phrase))
		}
	}
	return violations
}

func (v *Validator) checkBeliefConflicts(ctx context.Context, updates []cognition.BeliefUpdate) []string {
	if v.beliefs == nil {
		return nil
	}
	var violations []string
	for _, u := range updates {
		if u.Entity == "" || u.Relation == "" || u.Value == "" {
			continue
		}
		existing, ok := v.beliefs.Query(ctx, u.Entity, u.Relation)
		if !ok {
			continue
		}
		if !strings.EqualFold(existing, u.Value) {
			violations = append(violations, fmt.Sprintf(
				"WARNING: belief conflict - (%s, %s) was %q, now claiming %q",
				u.Entity, u.Relation, existing, u.Value))
		}
	}
	return violations
}

func checkActionRequest(action string) []string {
	lower := strings.ToLower(action)
	for allowed := range allowedActions {
		if strings.Contains(lower, allowed) {
			return nil
		}
	}
	return []string{fmt.Sprintf("WARNING: unknown action request %q", action)}
}

// AutoCorrect applies deterministic rewrites when every violation is
// non-critical. Returns the rewritten speech and true if a rewrite changed
// anything, or ("", false) if nothing applies or a critical violation is
// present.
func (v *Validator) AutoCorrect(result Result, speech string) (string, bool) {
	if result.Severity == SeverityCritical {
		return "", false
	}
	corrected := speech
	for _, rule := range correctionRules {
		corrected = rule.pattern.ReplaceAllString(corrected, rule.replacement)
	}
	if corrected == speech {
		return "", false
	}
	return corrected, true
}
