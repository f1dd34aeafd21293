package protocol

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"
)

// Key command errors.
var (
	// ErrUnknownKey indicates a key name missing from the key table.
	ErrUnknownKey = errors.New("unknown key")

	// ErrUnmappedRune indicates keyboard text with no key equivalent.
	ErrUnmappedRune = errors.New("no key for character")
)

// Direction is the key event direction of a key inject message.
type Direction uint64

const (
	// DirPress starts a long press.
	DirPress Direction = 1

	// DirRelease ends a long press.
	DirRelease Direction = 2

	// DirShort is a complete short press.
	DirShort Direction = 3
)

// String returns the command suffix for the direction.
func (d Direction) String() string {
	switch d {
	case DirPress:
		return "PRESS"
	case DirRelease:
		return "RELEASE"
	case DirShort:
		return "SHORT"
	default:
		return fmt.Sprintf("Direction(%d)", uint64(d))
	}
}

// Android key codes used directly by command handling.
const (
	KeyHome       = 3
	KeyBack       = 4
	KeyVolumeUp   = 24
	KeyVolumeDown = 25
	KeyPower      = 26
	KeyEnter      = 66
	KeyVolumeMute = 164
)

// Fixed power state payloads pushed by the device.
const (
	PowerOnPayload  = "c202020801"
	PowerOffPayload = "c202020800"
)

// keyTable maps symbolic names (without the KEY_ prefix) to key codes.
var keyTable = map[string]int{
	"HOME":            KeyHome,
	"BACK":            KeyBack,
	"CALL":            5,
	"ENDCALL":         6,
	"UP":              19,
	"DOWN":            20,
	"LEFT":            21,
	"RIGHT":           22,
	"CENTER":          23,
	"VOLUP":           KeyVolumeUp,
	"VOLDOWN":         KeyVolumeDown,
	"POWER":           KeyPower,
	"CAMERA":          27,
	"CLEAR":           28,
	"COMMA":           55,
	"PERIOD":          56,
	"TAB":             61,
	"SPACE":           62,
	"EXPLORER":        64,
	"ENTER":           KeyEnter,
	"DEL":             67,
	"GRAVE":           68,
	"MINUS":           69,
	"EQUALS":          70,
	"LEFT_BRACKET":    71,
	"RIGHT_BRACKET":   72,
	"BACKSLASH":       73,
	"SEMICOLON":       74,
	"APOSTROPHE":      75,
	"SLASH":           76,
	"AT":              77,
	"PLUS":            81,
	"MENU":            82,
	"SEARCH":          84,
	"PLAYPAUSE":       85,
	"STOP":            86,
	"NEXT":            87,
	"PREVIOUS":        88,
	"REWIND":          89,
	"FORWARD":         90,
	"MUTE":            91,
	"PAGE_UP":         92,
	"PAGE_DOWN":       93,
	"ESCAPE":          111,
	"FORWARD_DEL":     112,
	"PLAY":            126,
	"PAUSE":           127,
	"EJECT":           129,
	"RECORD":          130,
	"VOLUME_MUTE":     KeyVolumeMute,
	"INFO":            165,
	"CHANNEL_UP":      166,
	"CHANNEL_DOWN":    167,
	"ZOOM_IN":         168,
	"ZOOM_OUT":        169,
	"TV":              170,
	"GUIDE":           172,
	"DVR":             173,
	"BOOKMARK":        174,
	"CAPTIONS":        175,
	"SETTINGS":        176,
	"TV_POWER":        177,
	"INPUT":           178,
	"RED":             183,
	"GREEN":           184,
	"YELLOW":          185,
	"BLUE":            186,
	"APP_SWITCH":      187,
	"LANGUAGE":        204,
	"SLEEP":           223,
	"WAKEUP":          224,
	"PAIRING":         225,
	"ASSIST":          219,
	"BRIGHTNESS_DOWN": 220,
	"BRIGHTNESS_UP":   221,
	"APPS":            284,
}

func init() {
	for i := 0; i <= 9; i++ {
		keyTable[strconv.Itoa(i)] = 7 + i
	}
	for c := 'A'; c <= 'Z'; c++ {
		keyTable[string(c)] = 29 + int(c-'A')
	}
}

// KeyCode returns the key code for a symbolic name, with or without the
// KEY_ prefix.
func KeyCode(name string) (int, bool) {
	code, ok := keyTable[strings.TrimPrefix(strings.ToUpper(name), "KEY_")]
	return code, ok
}

// KeyName returns the symbolic name (KEY_ prefixed) for a key code.
// Codes that have several names resolve to the alphabetically first one.
func KeyName(code int) string {
	var names []string
	for name, c := range keyTable {
		if c == code {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return strconv.Itoa(code)
	}
	sort.Strings(names)
	return "KEY_" + names[0]
}

// KeyNames returns every symbolic key name, sorted.
func KeyNames() []string {
	names := make([]string, 0, len(keyTable))
	for name := range keyTable {
		names = append(names, "KEY_"+name)
	}
	sort.Strings(names)
	return names
}

// KeyPress returns the key inject payload for a key code and direction:
// 52 <len> 08 <code varint> 10 <direction>.
func KeyPress(code int, dir Direction) string {
	var inner []byte
	inner = appendVarint(inner, 1, uint64(code))
	inner = appendVarint(inner, 2, uint64(dir))
	return Decode(appendMessage(nil, 10, inner))
}

// ParseKey parses a key command. Accepted forms are KEY_<NAME>,
// KEY_<NAME>_PRESS, KEY_<NAME>_RELEASE, <code>, <code>_PRESS and
// <code>_RELEASE. Forms without a suffix are short presses.
func ParseKey(command string) (int, Direction, error) {
	s := strings.ToUpper(strings.TrimSpace(command))
	dir := DirShort
	switch {
	case strings.HasSuffix(s, "_PRESS"):
		dir = DirPress
		s = strings.TrimSuffix(s, "_PRESS")
	case strings.HasSuffix(s, "_RELEASE"):
		dir = DirRelease
		s = strings.TrimSuffix(s, "_RELEASE")
	}

	if code, err := strconv.Atoi(s); err == nil {
		if code < 0 {
			return 0, 0, fmt.Errorf("%w: %q", ErrUnknownKey, command)
		}
		return code, dir, nil
	}
	if !strings.HasPrefix(s, "KEY_") {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownKey, command)
	}
	code, ok := KeyCode(s)
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrUnknownKey, command)
	}
	return code, dir, nil
}

// runeKeys maps punctuation to key codes for keyboard text.
var runeKeys = map[rune]int{
	' ':  62,
	'\n': KeyEnter,
	'\t': 61,
	',':  55,
	'.':  56,
	'`':  68,
	'-':  69,
	'=':  70,
	'[':  71,
	']':  72,
	'\\': 73,
	';':  74,
	'\'': 75,
	'/':  76,
	'@':  77,
	'+':  81,
	'*':  17,
	'#':  18,
}

// TextToKeys maps keyboard text to key codes. Letters are case
// insensitive. The first character without a key equivalent fails the
// whole text so nothing is typed partially.
func TextToKeys(text string) ([]int, error) {
	codes := make([]int, 0, len(text))
	for _, r := range text {
		switch {
		case r >= '0' && r <= '9':
			codes = append(codes, 7+int(r-'0'))
		case r < unicode.MaxASCII && unicode.IsLetter(r):
			codes = append(codes, 29+int(unicode.ToUpper(r)-'A'))
		default:
			code, ok := runeKeys[r]
			if !ok {
				return nil, fmt.Errorf("%w: %q", ErrUnmappedRune, r)
			}
			codes = append(codes, code)
		}
	}
	return codes, nil
}
