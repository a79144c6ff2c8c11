package app

import (
	"log"
	"time"

	"github.com/gestureguard/gestureguard/internal/detector"
	"github.com/gestureguard/gestureguard/internal/gesture"
)

// runPipeline is the main detection loop that processes frames from the camera.
// It manages the state transitions between idle and active modes based on motion detection.
//
// Pipeline logic:
// 1. Start in idle mode (IdleFPS=5)
// 2. On motion detected, switch to active mode (ActiveFPS=15)
// 3. Run hand detection and classify each hand
// 4. Feed every frame's label into the stability tracker
// 5. On a stable transition to a real gesture, persist and notify
// 6. After 2s no motion, switch back to idle mode
func (a *App) runPipeline() {
	activeMode := false
	lastMotionTime := time.Now()

	frameInterval := time.Second / time.Duration(IdleFPS)
	ticker := time.NewTicker(frameInterval)
	defer ticker.Stop()

	stopCh := a.stopCh

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			// Skip processing if detection is disabled
			if !a.IsEnabled() {
				continue
			}

			frame, err := a.Camera().ReadFrame()
			if err != nil {
				log.Printf("Error reading frame: %v", err)
				continue
			}

			// Step 1: Motion detection
			motionDetected, _ := a.motion.Detect(frame)

			if motionDetected {
				lastMotionTime = time.Now()

				if !activeMode {
					activeMode = true
					a.Camera().SetFPS(ActiveFPS)
					frameInterval = time.Second / time.Duration(ActiveFPS)
					ticker.Reset(frameInterval)
					log.Println("Switched to active mode")
				}
			} else if activeMode {
				if time.Since(lastMotionTime) > idleTimeout() {
					activeMode = false
					a.Camera().SetFPS(IdleFPS)
					frameInterval = time.Second / time.Duration(IdleFPS)
					ticker.Reset(frameInterval)
					log.Println("Switched to idle mode")
				}
			}

			source := a.Source()
			if !activeMode || source == nil {
				frame.Close()
				continue
			}

			// Step 2: Hand detection
			observations, err := source.Detect(frame)
			frame.Close() // Done with the frame

			if err != nil {
				log.Printf("Error detecting hands: %v", err)
				continue
			}

			a.processObservations(observations)
		}
	}
}

// processObservations classifies each detected hand and feeds the labels
// through the stability tracker. An empty frame still feeds the tracker:
// "No Hand" is a tracked state, so a hand leaving the frame forces a
// fresh stability run before the next gesture can fire.
func (a *App) processObservations(observations []detector.Observation) {
	if len(observations) == 0 {
		if _, err := a.tracker.Observe(0, detector.LabelNoHand, 1.0); err != nil {
			log.Printf("Error tracking empty frame: %v", err)
		}
		return
	}

	for _, obs := range observations {
		cls := a.classifier.Classify(obs)
		if cls.Label == "" {
			continue
		}

		transition, err := a.tracker.Observe(obs.HandID, cls.Label, cls.Confidence)
		if err != nil {
			log.Printf("Error tracking observation: %v", err)
			continue
		}
		if transition == nil {
			continue
		}

		a.handleTransition(transition, obs, cls)
	}
}

// handleTransition reacts to a newly stable gesture. No Hand and Unknown
// are tracked states but never produce events or notifications.
func (a *App) handleTransition(tr *gesture.Transition, obs detector.Observation, cls detector.Classification) {
	if tr.Label == detector.LabelNoHand || tr.Label == detector.LabelUnknown {
		return
	}

	event, err := gesture.BuildEvent(tr, obs, cls)
	if err != nil {
		log.Printf("Error building event: %v", err)
		return
	}

	log.Printf("Stable gesture: %s (%.2f) hand=%d", event.Label, event.Confidence, event.HandID)

	a.recordEvent(event)

	if a.dispatcher != nil {
		a.dispatcher.NotifyGestureDetected(event.Label, event.Confidence, event.HandID)
	}
}
