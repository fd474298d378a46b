package auth

// User is the identity of the logged-in employee.
type User struct {
	ID         int64  `json:"id,omitempty"`
	Username   string `json:"username"`
	Department string `json:"department"`
	Email      string `json:"email,omitempty"`
	FullName   string `json:"full_name,omitempty"`
	IsAdmin    bool   `json:"is_admin,omitempty"`
}

// Credentials are sent to POST /auth/login.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is the body of a login reply. Older deployments return the
// identity under "user" instead of "employee".
type LoginResponse struct {
	Success  bool   `json:"success"`
	Employee *User  `json:"employee,omitempty"`
	User     *User  `json:"user,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Identity returns whichever identity field the server populated.
func (r LoginResponse) Identity() *User {
	if r.Employee != nil {
		return r.Employee
	}
	return r.User
}

// StatusResponse is the body of GET /auth/status.
type StatusResponse struct {
	Authenticated bool  `json:"authenticated"`
	Employee      *User `json:"employee,omitempty"`
	User          *User `json:"user,omitempty"`
}

// Identity returns whichever identity field the server populated.
func (r StatusResponse) Identity() *User {
	if r.Employee != nil {
		return r.Employee
	}
	return r.User
}

// LoginResult is returned to callers of the session store's Login.
type LoginResult struct {
	Success bool
	Error   string
}
