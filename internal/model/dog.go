package model

import "time"

// Dog represents a dog owned by a user. BirthdayAt is NOT NULL in the
// schema; dogs provisioned from an application without a birthday get a
// placeholder computed by PlaceholderBirthday.
type Dog struct {
    ID                 string    // dogs.id
    OwnerID            string    // dogs.owner_id (references users.id)
    Name               string    // dogs.name
    Breed              string    // dogs.breed
    Weight             string    // dogs.weight
    Gender             string    // dogs.gender
    BirthdayAt         time.Time // dogs.birthday_at
    Personality        string    // dogs.personality
    VaccineCertificate string    // dogs.vaccine_certificate
    CreatedAt          time.Time // dogs.created_at
    UpdatedAt          time.Time // dogs.updated_at
}

// MaxDogAge is the oldest age, in years, accepted for a dog.
const MaxDogAge = 30

// PlaceholderBirthday returns the birthday recorded for a dog whose
// application did not carry one: January 1st of the year the dog would
// have been born given its stated age, or January 1st of the current
// year when the age is unknown too. Ages above MaxDogAge count as MaxDogAge.
func PlaceholderBirthday(now time.Time, age *int) time.Time {
    year := now.Year()
    if age != nil && *age > 0 {
        year -= min(*age, MaxDogAge)
    }
    return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}
