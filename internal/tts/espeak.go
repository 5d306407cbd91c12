package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

int
espeak_say(const char *text, const char *lang, int rate)
{
	if (!text)
	{ return -1; }

	if (espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0) < 0)
	{ return -2; }

	espeak_VOICE specs = { .languages = lang };
	espeak_SetVoiceByProperties(&specs);
	if (rate > 0)
	{ espeak_SetParameter(espeakRATE, rate, 0); }

	espeak_Synth(text, 500, 0, 0, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"fmt"
	"sync"
	"unsafe"
)

const (
	DefaultRate  = 170
	DefaultVoice = "en"
)

// Espeak speaks through espeak-ng. Calls are serialized: the dispatch loop
// and the reminder ticker may both speak, one utterance at a time.
type Espeak struct {
	mu    sync.Mutex
	voice string
	rate  int
}

func NewEspeak(voice string, rate int) *Espeak {
	if voice == "" {
		voice = DefaultVoice
	}
	if rate <= 0 {
		rate = DefaultRate
	}
	return &Espeak{voice: voice, rate: rate}
}

// Speak blocks until text has been played.
func (e *Espeak) Speak(text string) error {
	if text == "" {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	clang := C.CString(e.voice)
	defer C.free(unsafe.Pointer(clang))

	rc := C.espeak_say(ctext, clang, C.int(e.rate))
	if rc != 0 {
		return fmt.Errorf("espeak_say failed: %d", int(rc))
	}

	return nil
}
