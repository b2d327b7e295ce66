package flows

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/proloapp/sparkle/internal/client/account"
	"github.com/proloapp/sparkle/internal/client/biometric"
	"github.com/proloapp/sparkle/internal/client/device"
	"github.com/proloapp/sparkle/internal/client/prefs"
	"github.com/proloapp/sparkle/internal/client/validate"
	"github.com/proloapp/sparkle/internal/common"
	"github.com/proloapp/sparkle/internal/logging"
)

// Step is the onboarding screen the user is currently on.
type Step string

const (
	StepName      Step = "name"
	StepAvatar    Step = "avatar"
	StepBiometric Step = "biometric"
	StepDone      Step = "done"
)

// ErrNoAvatarSelected means SubmitAvatar was called before SelectAvatar.
var ErrNoAvatarSelected = errors.New("no avatar selected")

// Avatar is a locally selected image pending upload.
type Avatar struct {
	Content     []byte
	ContentType string
	Ext         string
}

// OnboardingFlow walks a freshly registered user through display name,
// avatar and the biometric offer. Back navigation keeps entered data, so
// going back and forward again does not lose the selection.
type OnboardingFlow struct {
	client     account.Client
	prefs      prefs.Store
	device     device.Info
	challenger biometric.Challenger
	logger     logging.Logger

	userID string
	step   Step
	name   string
	avatar *Avatar

	now func() time.Time
}

func NewOnboardingFlow(userID string, client account.Client, store prefs.Store, info device.Info, challenger biometric.Challenger, logger logging.Logger) *OnboardingFlow {
	return &OnboardingFlow{
		client:     client,
		prefs:      store,
		device:     info,
		challenger: challenger,
		logger:     logger,
		userID:     userID,
		step:       StepName,
		now:        time.Now,
	}
}

// Step returns the current onboarding step.
func (f *OnboardingFlow) Step() Step {
	return f.step
}

// Name returns the submitted display name, if any.
func (f *OnboardingFlow) Name() string {
	return f.name
}

// Back moves one step back. Entered data is kept.
func (f *OnboardingFlow) Back() {
	switch f.step {
	case StepAvatar:
		f.step = StepName
	case StepBiometric:
		f.step = StepAvatar
	}
}

// SubmitName records the display name and advances to the avatar step. Any
// non-empty trimmed name is accepted.
func (f *OnboardingFlow) SubmitName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return validate.Errors{validate.FieldUsername: "Please enter your name to continue"}
	}

	f.name = name
	f.step = StepAvatar
	return nil
}

// SelectAvatar stages an image for upload. It may be called again to
// replace a previous selection.
func (f *OnboardingFlow) SelectAvatar(content []byte, filename string) {
	ext := strings.TrimPrefix(path.Ext(filename), ".")
	if ext == "" {
		ext = "png"
	}
	f.avatar = &Avatar{
		Content:     content,
		ContentType: contentTypeForExt(ext),
		Ext:         ext,
	}
}

// Avatar returns the staged selection, if any.
func (f *OnboardingFlow) Avatar() *Avatar {
	return f.avatar
}

// SubmitAvatar uploads the staged image and writes username and avatar URL
// to the profile. The object key embeds the upload time, so a retry after a
// failure produces a fresh key instead of overwriting a possibly
// half-written object.
func (f *OnboardingFlow) SubmitAvatar(ctx context.Context) error {
	if f.avatar == nil {
		return ErrNoAvatarSelected
	}

	key := fmt.Sprintf("%s-%d.%s", f.userID, f.now().UnixMilli(), f.avatar.Ext)
	if err := f.client.UploadAvatar(ctx, key, f.avatar.Content, f.avatar.ContentType); err != nil {
		return fmt.Errorf("failed to upload avatar: %w", err)
	}

	avatarURL := f.client.AvatarPublicURL(key)
	patch := account.ProfilePatch{
		Username:  &f.name,
		AvatarURL: &avatarURL,
	}
	if err := f.client.UpdateProfile(ctx, f.userID, patch); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	f.step = StepBiometric
	return nil
}

// SkipAvatar writes the username without an avatar and advances to the
// biometric offer.
func (f *OnboardingFlow) SkipAvatar(ctx context.Context) error {
	patch := account.ProfilePatch{Username: &f.name}
	if err := f.client.UpdateProfile(ctx, f.userID, patch); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}
	f.step = StepBiometric
	return nil
}

// EnableBiometric provisions the fingerprint shortcut: biometric prompt,
// remote flag, then the local record. The local record is written last, so
// a partial failure never leaves a shortcut the service does not know
// about.
func (f *OnboardingFlow) EnableBiometric(ctx context.Context) error {
	if !f.device.Platform(ctx).Mobile() {
		return common.ErrPlatformUnsupported
	}

	ok, err := f.challenger.Challenge(ctx, "Confirm fingerprint to enable quick login")
	if err != nil {
		return fmt.Errorf("biometric challenge failed: %w", err)
	}
	if !ok {
		return ErrChallengeDeclined
	}

	enabled := true
	if err := f.client.UpdateProfile(ctx, f.userID, account.ProfilePatch{FingerprintEnabled: &enabled}); err != nil {
		return fmt.Errorf("failed to update profile: %w", err)
	}

	if err := prefs.SaveShortcut(ctx, f.prefs, f.userID); err != nil {
		return fmt.Errorf("failed to save fingerprint shortcut: %w", err)
	}

	f.step = StepDone
	return nil
}

// SkipBiometric declines the offer and finishes onboarding.
func (f *OnboardingFlow) SkipBiometric() {
	f.step = StepDone
}

func contentTypeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "webp":
		return "image/webp"
	default:
		return "image/png"
	}
}
