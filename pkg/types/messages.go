package types

// Client -> Server (JSON envelope: { id?, event, data })
// Events carrying an id expect an ack with the same id.
//
// createRoom (acked):
//   mode: "coding" | "trivia" (default "coding")
//   difficulty: "easy" | "medium" | "hard"
//   durationSec: 300 | 600 | 900
//   allow: { username: string } // optional, makes the room invite-only
//
// joinRoom (acked):
//   data: "CODE" or { code: "CODE" }
//
// leaveRoom:   data: "CODE"
// updateScore: data: { code: "CODE", score: number }
// finish:      data: "CODE"
// triviaDone:  data: "CODE"

// Server -> Client
// ack:
//   id: number // echoes the request id
//   data: event-specific (see below)
//
// createRoom ack data:
//   roomCode: string
//   error?: string
//
// joinRoom ack data:
//   success: boolean
//   roomCode: string
//   error?: string
//   members: string[]
//   timeLeft: number | null
//   started: boolean
//
// userJoined:     { username }
// membersUpdated: [{ username, score, finished }]
// timerUpdate:    { timeLeft } // whole seconds, non-increasing
// battleStarted:  { timeLeft, expiresAt }
// roomClosed:     { roomCode }
// codingResults:  { roomCode, yourScore, leaderboard: [{username, score}], isTie, youWon }
// triviaResults:  { roomCode, yourScore, yourCorrectCount, yourTotalQuestions, leaderboard }
// friendInvited / friendInvitedTrivia: { roomCode, inviterUsername }
