// Package messages holds the localized strings used for system chat lines
// and error notices. Every entry exists in every supported language; the
// chat transcript carries all translations at once so each client renders
// its own.
package messages

import "strings"

type Key string

// System chat lines.
const (
	CreatedGame    Key = "createdGame"
	EnteredGame    Key = "enteredGame"
	LeftGame       Key = "leftGame"
	PromotedAdmin  Key = "promotedAdmin"
	StartedGame    Key = "startedGame"
	QuestionNumber Key = "questionNumber"
	Answered       Key = "answered"
	DidntAnswer    Key = "didntAnswer"
	QuizEnded      Key = "quizEnded"
	PersistFailed  Key = "persistFailed"
)

// Error notices.
const (
	ErrRoomCodeRequired  Key = "roomCodeRequired"
	ErrRoomNotFound      Key = "roomNotFound"
	ErrRoomFull          Key = "roomFull"
	ErrNameRequired      Key = "nameRequired"
	ErrNameTaken         Key = "nameTaken"
	ErrGameInProgress    Key = "gameInProgress"
	ErrMissingQuizParams Key = "missingQuizParams"
	ErrMessageRequired   Key = "messageRequired"
	ErrNotInRoom         Key = "notInRoom"
	ErrAlreadyInRoom     Key = "alreadyInRoom"
	ErrNoRoundInProgress Key = "noRoundInProgress"
	ErrAlreadyAnswered   Key = "alreadyAnswered"
	ErrMalformedEvent    Key = "malformedEvent"
	ErrUnknownEvent      Key = "unknownEvent"
	ErrInternal          Key = "internal"
)

const DefaultLanguage = "en"

var languages = []string{"en", "fr"}

var catalog = map[Key]map[string]string{
	CreatedGame: {
		"en": "{{username}} created the game",
		"fr": "{{username}} a créé la partie",
	},
	EnteredGame: {
		"en": "{{username}} entered the game",
		"fr": "{{username}} a rejoint la partie",
	},
	LeftGame: {
		"en": "{{username}} left the game",
		"fr": "{{username}} a quitté la partie",
	},
	PromotedAdmin: {
		"en": "{{username}} was promoted to admin",
		"fr": "{{username}} est maintenant administrateur",
	},
	StartedGame: {
		"en": "{{username}} started the game",
		"fr": "{{username}} a lancé la partie",
	},
	QuestionNumber: {
		"en": "Question {{current}}/{{total}}",
		"fr": "Question {{current}}/{{total}}",
	},
	Answered: {
		"en": "{{username}} answered",
		"fr": "{{username}} a répondu",
	},
	DidntAnswer: {
		"en": "{{username}} didn't answer",
		"fr": "{{username}} n'a pas répondu",
	},
	QuizEnded: {
		"en": "The quiz is over",
		"fr": "Le quiz est terminé",
	},
	PersistFailed: {
		"en": "The game could not be saved",
		"fr": "La partie n'a pas pu être sauvegardée",
	},

	ErrRoomCodeRequired: {
		"en": "A room code is required",
		"fr": "Un code de salon est requis",
	},
	ErrRoomNotFound: {
		"en": "This room does not exist",
		"fr": "Ce salon n'existe pas",
	},
	ErrRoomFull: {
		"en": "This room is full",
		"fr": "Ce salon est complet",
	},
	ErrNameRequired: {
		"en": "A username is required",
		"fr": "Un pseudo est requis",
	},
	ErrNameTaken: {
		"en": "This username is already taken in this room",
		"fr": "Ce pseudo est déjà utilisé dans ce salon",
	},
	ErrGameInProgress: {
		"en": "A game is already in progress in this room",
		"fr": "Une partie est déjà en cours dans ce salon",
	},
	ErrMissingQuizParams: {
		"en": "Missing quiz parameters: {{fields}}",
		"fr": "Paramètres du quiz manquants : {{fields}}",
	},
	ErrMessageRequired: {
		"en": "A message is required",
		"fr": "Un message est requis",
	},
	ErrNotInRoom: {
		"en": "You are not a member of this room",
		"fr": "Vous n'êtes pas membre de ce salon",
	},
	ErrAlreadyInRoom: {
		"en": "You are already in a room",
		"fr": "Vous êtes déjà dans un salon",
	},
	ErrNoRoundInProgress: {
		"en": "No question is currently being played",
		"fr": "Aucune question n'est en cours",
	},
	ErrAlreadyAnswered: {
		"en": "You already answered this question",
		"fr": "Vous avez déjà répondu à cette question",
	},
	ErrMalformedEvent: {
		"en": "The request could not be read",
		"fr": "La requête est illisible",
	},
	ErrUnknownEvent: {
		"en": "Unknown request",
		"fr": "Requête inconnue",
	},
	ErrInternal: {
		"en": "Something went wrong, please try again",
		"fr": "Une erreur est survenue, veuillez réessayer",
	},
}

// Vars are interpolated into "{{name}}" placeholders.
type Vars map[string]string

// Languages returns the supported language codes.
func Languages() []string {
	out := make([]string, len(languages))
	copy(out, languages)
	return out
}

// Translate renders key in lang, falling back to the default language and
// then to the key itself.
func Translate(key Key, lang string, vars Vars) string {
	texts, ok := catalog[key]
	if !ok {
		return string(key)
	}
	text, ok := texts[lang]
	if !ok {
		text = texts[DefaultLanguage]
	}
	return interpolate(text, vars)
}

// Localize renders key in every supported language.
func Localize(key Key, vars Vars) map[string]string {
	out := make(map[string]string, len(languages))
	for _, lang := range languages {
		out[lang] = Translate(key, lang, vars)
	}
	return out
}

func interpolate(text string, vars Vars) string {
	if len(vars) == 0 {
		return text
	}
	pairs := make([]string, 0, len(vars)*2)
	for name, value := range vars {
		pairs = append(pairs, "{{"+name+"}}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
