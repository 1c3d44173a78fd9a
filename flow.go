package ldapauth

import (
	"context"
	"errors"
	"log/slog"
)

// FlowState is the login flow's single piece of mutable state.
type FlowState string

const (
	// StateAwaitingCredentials is the initial state. Failed attempts stay
	// here; every attempt is independent, with no counter or lockout.
	StateAwaitingCredentials FlowState = "awaiting_credentials"
	// StateCompleted is the terminal success state.
	StateCompleted FlowState = "completed"
)

// ErrorCode is the user-visible error attached to a re-shown login form.
type ErrorCode string

const (
	// ErrorCodeInvalidAuth covers rejected credentials and group-membership
	// denials.
	ErrorCodeInvalidAuth ErrorCode = "invalid_auth"
	// ErrorCodeGeneric covers directory query failures and transport
	// faults: the user's own credentials were never proven wrong.
	ErrorCodeGeneric ErrorCode = "error"
)

// Form field names requested from the caller.
const (
	FieldUsername = "username"
	FieldPassword = "password"
)

// ErrFlowCompleted is returned when a completed flow is stepped again.
var ErrFlowCompleted = errors.New("ldapauth: login flow already completed")

// StepInput carries the credentials a caller collected. Both values are
// secret-bearing free text; the flow discards the password as soon as the
// attempt is decided.
type StepInput struct {
	Username string
	Password string
}

// StepResultType discriminates what a flow step produced.
type StepResultType string

const (
	// StepResultForm asks the caller to (re-)present the login form.
	StepResultForm StepResultType = "form"
	// StepResultDone signals successful completion.
	StepResultDone StepResultType = "done"
)

// StepResult is the outcome of one flow step. Form results list the fields
// to collect plus an optional error code from the previous attempt; done
// results carry the authenticated username and resolved credential, never
// the password.
type StepResult struct {
	Type      StepResultType
	Fields    []string
	ErrorCode ErrorCode

	Username   string
	Credential *Credential
}

// LoginFlow is the two-step conversational state machine in front of the
// decision engine: show a form, decide an attempt, either re-show the form
// with an error code or complete and resolve the host credential.
//
// A LoginFlow serves one conversation and is not safe for concurrent use;
// start one flow per login conversation via Provider.LoginFlow.
type LoginFlow struct {
	provider *Provider
	state    FlowState
}

// State returns the flow's current state.
func (f *LoginFlow) State() FlowState {
	return f.state
}

// Step advances the flow. A nil input requests the initial form. With
// input, the credentials are decided by the authenticator: on failure the
// flow stays in StateAwaitingCredentials and returns the form with an
// error code attached; on success it transitions to StateCompleted and
// returns the username together with the host credential resolved through
// the provider's CredentialStore.
func (f *LoginFlow) Step(ctx context.Context, input *StepInput) (*StepResult, error) {
	if f.state == StateCompleted {
		return nil, ErrFlowCompleted
	}

	if input == nil {
		return f.form(""), nil
	}

	_, err := f.provider.auth.Authenticate(ctx, input.Username, input.Password)
	input.Password = ""
	if err != nil {
		code := errorCodeFor(err)
		f.provider.logger.Debug("login_flow_attempt_failed",
			slog.String("username_masked", maskSensitiveData(input.Username)),
			slog.String("error_code", string(code)))
		return f.form(code), nil
	}

	cred, err := f.provider.credentials.FindOrCreateCredential(ctx, input.Username)
	if err != nil {
		// Host-side fault, not an authentication outcome.
		return nil, err
	}

	f.state = StateCompleted
	f.provider.logger.Info("login_flow_completed",
		slog.String("username_masked", maskSensitiveData(input.Username)))

	return &StepResult{
		Type:       StepResultDone,
		Username:   input.Username,
		Credential: cred,
	}, nil
}

func (f *LoginFlow) form(code ErrorCode) *StepResult {
	return &StepResult{
		Type:      StepResultForm,
		Fields:    []string{FieldUsername, FieldPassword},
		ErrorCode: code,
	}
}

// errorCodeFor maps decision-engine failures to user-visible codes.
// Rejected credentials and group denials become "invalid_auth"; query
// failures and transport faults become the generic "error", since the
// user's password was never actually tested in those cases.
func errorCodeFor(err error) ErrorCode {
	if IsInvalidCredentials(err) || IsGroupMembershipDenied(err) {
		return ErrorCodeInvalidAuth
	}
	return ErrorCodeGeneric
}
