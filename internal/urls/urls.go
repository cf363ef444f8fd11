package urls

// ProductEndpoint is Apple's serial number to model name service.
// It only answers plain HTTP and takes the lookup key in the "cc" parameter.
const ProductEndpoint = "http://support-sp.apple.com/sp/product"

// FindSerialNumber is Apple's guide for locating a device's serial number.
const FindSerialNumber = "https://support.apple.com/en-us/102767"

// CheckCoverage looks up warranty and coverage for a full serial number.
const CheckCoverage = "https://checkcoverage.apple.com/"

// Repository is the project home page.
const Repository = "https://github.com/muurk/modelfinder"
