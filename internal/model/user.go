package model

import "time"

// User represents a dog-run member as stored in the `users` table.
// A user is created either by direct registration or when an admin
// approves an Application. The json tags are omitted because handlers
// shape their own response types.
//
// Fields:
//  ID           – UUID primary key.
//  Email        – unique, normalized (lower case, trimmed) email address.
//  PasswordHash – bcrypt hash; copied verbatim from an Application on approval.
//  LastName     – family name.
//  FirstName    – given name.
//  PhoneNumber  – contact number.
//  ZipCode      – postal code.
//  Prefecture   – prefecture part of the address.
//  City         – city part of the address.
//  Address      – street address.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           string    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    LastName     string    // users.last_name
    FirstName    string    // users.first_name
    PhoneNumber  string    // users.phone_number
    ZipCode      string    // users.zip_code
    Prefecture   string    // users.prefecture
    City         string    // users.city
    Address      string    // users.address
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// FullName joins the family and given names the way they are shown in
// admin listings.
func (u User) FullName() string {
    switch {
    case u.LastName == "":
        return u.FirstName
    case u.FirstName == "":
        return u.LastName
    }
    return u.LastName + " " + u.FirstName
}
