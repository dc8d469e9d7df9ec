package portal

// QuestionsPerSubject is the fixed length of every authored exam.
const QuestionsPerSubject = 20

// OptionsPerQuestion is the fixed number of answer options; option identity is its index.
const OptionsPerQuestion = 4

type ResultStatus string

const (
	StatusPass ResultStatus = "Pass"
	StatusFail ResultStatus = "Fail"
)

type Student struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	DOB                  string   `json:"dob"` // YYYY-MM-DD, compared verbatim
	RollNumber           string   `json:"rollNumber"`
	ProfilePhoto         string   `json:"profilePhoto"`
	AssignedSubjectCodes []string `json:"assignedSubjectCodes"`
}

// HasSubject reports whether code is in the student's assigned list.
func (s Student) HasSubject(code string) bool {
	for _, c := range s.AssignedSubjectCodes {
		if c == code {
			return true
		}
	}
	return false
}

type Question struct {
	ID            string    `json:"id"`
	Text          string    `json:"text"`
	Options       [4]string `json:"options"`
	CorrectAnswer int       `json:"correctAnswer"` // 0-3
}

type Subject struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Code      string     `json:"code"`
	Duration  int        `json:"duration"` // minutes
	Questions []Question `json:"questions"`
}

type ExamAttempt struct {
	StudentRoll   string        `json:"studentRoll"`
	SubjectCode   string        `json:"subjectCode"`
	Answers       []*int        `json:"answers"`
	StartTime     int64         `json:"startTime"` // unix millis
	Completed     bool          `json:"completed"`
	Score         *int          `json:"score,omitempty"`
	TotalMarks    *int          `json:"totalMarks,omitempty"`
	Status        *ResultStatus `json:"status,omitempty"`
	IsPublished   bool          `json:"isPublished"` // only visible to students when true
	AdminComments string        `json:"adminComments,omitempty"`
}

// Key returns the (studentRoll, subjectCode) natural key.
func (a ExamAttempt) Key() AttemptKey {
	return AttemptKey{Roll: a.StudentRoll, Code: a.SubjectCode}
}

type AttemptKey struct {
	Roll string
	Code string
}

func (k AttemptKey) String() string { return k.Roll + "/" + k.Code }

// SystemData is the whole persisted state, stored as one record.
type SystemData struct {
	Students []Student     `json:"students"`
	Subjects []Subject     `json:"subjects"`
	Attempts []ExamAttempt `json:"attempts"`
}

func (d *SystemData) studentIndex(roll string) int {
	for i := range d.Students {
		if d.Students[i].RollNumber == roll {
			return i
		}
	}
	return -1
}

func (d *SystemData) subjectIndex(code string) int {
	for i := range d.Subjects {
		if d.Subjects[i].Code == code {
			return i
		}
	}
	return -1
}

func (d *SystemData) attemptIndex(k AttemptKey) int {
	for i := range d.Attempts {
		if d.Attempts[i].StudentRoll == k.Roll && d.Attempts[i].SubjectCode == k.Code {
			return i
		}
	}
	return -1
}

// Destination names a navigation target of the portal front end.
type Destination string

const (
	DestHome             Destination = "/"
	DestAdminLogin       Destination = "/admin-login"
	DestAdminDashboard   Destination = "/admin-dashboard"
	DestStudentLogin     Destination = "/student-login"
	DestStudentDashboard Destination = "/student-dashboard"
	DestResults          Destination = "/results"
)

// ExamDestination is the exam room for a subject code.
func ExamDestination(code string) Destination { return Destination("/exam/" + code) }

// IntPtr is a helper for optional integer fields.
func IntPtr(v int) *int { return &v }
