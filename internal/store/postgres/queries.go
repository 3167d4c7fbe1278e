package postgres

const queryInsertEvent = `
INSERT INTO events (id, creator_id, title, description, status, start_time, end_time,
                    max_participants, approved_at, rejected_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
`

const queryGetEventByID = `
SELECT id, creator_id, title, description, status, start_time, end_time,
       max_participants, approved_at, rejected_at, created_at, updated_at
FROM events
WHERE id = $1
`

const queryGetEventStatus = `
SELECT status FROM events WHERE id = $1
`

// queryUpdateEventStatus is the single conditional write of the lifecycle
// engine. The status guard in the WHERE clause makes concurrent
// transitions race safely: the row lock serializes them and the loser
// matches zero rows. COALESCE keeps approved_at/rejected_at write-once.
const queryUpdateEventStatus = `
UPDATE events
SET status = $2,
    approved_at = COALESCE(approved_at, $3),
    rejected_at = COALESCE(rejected_at, $4),
    updated_at = $5
WHERE id = $1
  AND status = $6
RETURNING id, creator_id, title, description, status, start_time, end_time,
          max_participants, approved_at, rejected_at, created_at, updated_at
`

const queryDeleteEvent = `
DELETE FROM events WHERE id = $1
`

const queryListEventsByStatus = `
SELECT id, creator_id, title, description, status, start_time, end_time,
       max_participants, approved_at, rejected_at, created_at, updated_at
FROM events
WHERE status = $1
ORDER BY start_time ASC
LIMIT $2 OFFSET $3
`

const queryListEvents = `
SELECT id, creator_id, title, description, status, start_time, end_time,
       max_participants, approved_at, rejected_at, created_at, updated_at
FROM events
ORDER BY start_time ASC
LIMIT $1 OFFSET $2
`

const queryListActiveEndedBefore = `
SELECT id, creator_id, title, description, status, start_time, end_time,
       max_participants, approved_at, rejected_at, created_at, updated_at
FROM events
WHERE status = 'active'
  AND end_time < $1
ORDER BY end_time ASC
`

const queryListPendingStartingBetween = `
SELECT id, creator_id, title, description, status, start_time, end_time,
       max_participants, approved_at, rejected_at, created_at, updated_at
FROM events
WHERE status = 'pending'
  AND start_time >= $1
  AND start_time < $2
ORDER BY start_time ASC
`

// queryListLifecycleCandidates selects events that could have held any
// status inside [window_start, window_end): created before the window
// closed, and neither rejected nor past their end time strictly before it
// opened.
const queryListLifecycleCandidates = `
SELECT id, creator_id, title, description, status, start_time, end_time,
       max_participants, approved_at, rejected_at, created_at, updated_at
FROM events
WHERE created_at < $2
  AND (rejected_at IS NULL OR rejected_at >= $1)
  AND end_time >= $1
ORDER BY created_at ASC
`

const queryListParticipantsByEventID = `
SELECT id, event_id, user_id, joined_at
FROM participants
WHERE event_id = $1
ORDER BY joined_at ASC
`
