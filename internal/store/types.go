package store

// Student represents one roster row from students.csv.
type Student struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	RFID  string `json:"rfid,omitempty"`
}

// AttendanceEvent represents one row of a daily attendance file.
// Date is the calendar day of the file (2006-01-02), Time the wall clock
// of the mark (15:04:05).
type AttendanceEvent struct {
	StudentID string `json:"student_id"`
	Date      string `json:"date"`
	Time      string `json:"time"`
}

// Encoding represents one face encoding row: a student identifier and the
// fixed-length embedding vector derived from their enrollment photo.
type Encoding struct {
	StudentID string
	Vector    []float32
}
