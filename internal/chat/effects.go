package chat

// Sound is a short audio cue.
type Sound string

const (
	SoundMessage Sound = "message"
	SoundConnect Sound = "connect"
	SoundJoin    Sound = "join"
)

// Notifier raises a desktop notification. Implementations may fail when
// permission is missing; the session ignores such failures.
type Notifier interface {
	Notify(title, body string) error
}

// SoundPlayer plays audio cues, best-effort.
type SoundPlayer interface {
	Play(s Sound) error
}

// Toaster shows a transient, user-visible message.
type Toaster interface {
	Toast(msg string)
}

type NotifierFunc func(title, body string) error

func (f NotifierFunc) Notify(title, body string) error { return f(title, body) }

type SoundPlayerFunc func(s Sound) error

func (f SoundPlayerFunc) Play(s Sound) error { return f(s) }

type ToasterFunc func(msg string)

func (f ToasterFunc) Toast(msg string) { f(msg) }

type nopEffects struct{}

func (nopEffects) Notify(string, string) error { return nil }
func (nopEffects) Play(Sound) error            { return nil }
func (nopEffects) Toast(string)                {}
