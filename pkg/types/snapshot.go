package types

// RoomDTO (GET /rooms/{code}):
//   code: string
//   problem?: { problemId, title, difficulty, startingCode: {typescript, python}, problemDescription }
//   timeLeft: number | null // null until started
//   expiresAt: string // RFC3339, empty until started
//   started: boolean
//   members: [{ username, score, finished }]
//
// Graded run (POST /judge0/run):
//   status, time, memory, stdout, stderr, compile_output
//   score: 0..100
//   breakdown: { passed, failed, total }
//   hasHiddenCase: boolean
//   hiddenCasePassed?: boolean
//
// Match history (GET /me/matches):
//   totalPoints: number
//   matches: [{ startedAt, opponentUsername: string | null, points, result: "win"|"loss"|"tie" }]
